// Package model はドメインモデルを定義する。
package model

// RegionCategory は地域の区分を表す。
type RegionCategory string

const (
	// RegionCategoryMetropolitan は広域市を表す。
	RegionCategoryMetropolitan RegionCategory = "metropolitan"
	// RegionCategoryProvince は道を表す。
	RegionCategoryProvince RegionCategory = "province"
	// RegionCategoryCity は市・区を表す。
	RegionCategoryCity RegionCategory = "city"
	// RegionCategoryCounty は郡を表す。
	RegionCategoryCounty RegionCategory = "county"
	// RegionCategoryAgency は教育庁などの機関を表す。
	RegionCategoryAgency RegionCategory = "agency"
)

// Region はニュースの取材・収集対象となる行政単位を表す。
// 静的なカタログとして定義され、実行時に変更されることはない。
type Region struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`           // 短縮名（例: 부산）
	LocalizedName string         `json:"localized_name"` // 正式名（例: 부산광역시）
	Category      RegionCategory `json:"category"`
	Parent        string         `json:"parent,omitempty"` // 所属する広域市・道のID
}

// IsGrouping は広域市または道（配下に地域を持つ単位）かどうかを返す。
func (r Region) IsGrouping() bool {
	return r.Category == RegionCategoryMetropolitan || r.Category == RegionCategoryProvince
}
