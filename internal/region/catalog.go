// Package region は地域カタログと、スタッフの職位・担当地域に基づく
// アクセス範囲の判定を提供する。
package region

import (
	"strings"

	"github.com/hitoshi/newsdesk/internal/model"
)

// 広域市・道のID
const (
	MetroID    = "busan"
	ProvinceID = "gyeongnam"
)

// catalog は地域の静的カタログ。並び順はUIの選択肢およびスケジュール実行の順序になる。
var catalog = []model.Region{
	{ID: MetroID, Name: "부산", LocalizedName: "부산광역시", Category: model.RegionCategoryMetropolitan},
	{ID: "busan-jung", Name: "중구", LocalizedName: "부산광역시 중구", Category: model.RegionCategoryCity, Parent: MetroID},
	{ID: "busan-seo", Name: "서구", LocalizedName: "부산광역시 서구", Category: model.RegionCategoryCity, Parent: MetroID},
	{ID: "busan-dong", Name: "동구", LocalizedName: "부산광역시 동구", Category: model.RegionCategoryCity, Parent: MetroID},
	{ID: "busan-yeongdo", Name: "영도구", LocalizedName: "부산광역시 영도구", Category: model.RegionCategoryCity, Parent: MetroID},
	{ID: "busan-busanjin", Name: "부산진구", LocalizedName: "부산광역시 부산진구", Category: model.RegionCategoryCity, Parent: MetroID},
	{ID: "busan-dongnae", Name: "동래구", LocalizedName: "부산광역시 동래구", Category: model.RegionCategoryCity, Parent: MetroID},
	{ID: "busan-nam", Name: "남구", LocalizedName: "부산광역시 남구", Category: model.RegionCategoryCity, Parent: MetroID},
	{ID: "busan-buk", Name: "북구", LocalizedName: "부산광역시 북구", Category: model.RegionCategoryCity, Parent: MetroID},
	{ID: "busan-haeundae", Name: "해운대구", LocalizedName: "부산광역시 해운대구", Category: model.RegionCategoryCity, Parent: MetroID},
	{ID: "busan-saha", Name: "사하구", LocalizedName: "부산광역시 사하구", Category: model.RegionCategoryCity, Parent: MetroID},
	{ID: "busan-geumjeong", Name: "금정구", LocalizedName: "부산광역시 금정구", Category: model.RegionCategoryCity, Parent: MetroID},
	{ID: "busan-gangseo", Name: "강서구", LocalizedName: "부산광역시 강서구", Category: model.RegionCategoryCity, Parent: MetroID},
	{ID: "busan-yeonje", Name: "연제구", LocalizedName: "부산광역시 연제구", Category: model.RegionCategoryCity, Parent: MetroID},
	{ID: "busan-suyeong", Name: "수영구", LocalizedName: "부산광역시 수영구", Category: model.RegionCategoryCity, Parent: MetroID},
	{ID: "busan-sasang", Name: "사상구", LocalizedName: "부산광역시 사상구", Category: model.RegionCategoryCity, Parent: MetroID},
	{ID: "busan-gijang", Name: "기장군", LocalizedName: "부산광역시 기장군", Category: model.RegionCategoryCounty, Parent: MetroID},
	{ID: "busan-edu", Name: "부산교육청", LocalizedName: "부산광역시교육청", Category: model.RegionCategoryAgency, Parent: MetroID},

	{ID: ProvinceID, Name: "경남", LocalizedName: "경상남도", Category: model.RegionCategoryProvince},
	{ID: "changwon", Name: "창원시", LocalizedName: "경상남도 창원시", Category: model.RegionCategoryCity, Parent: ProvinceID},
	{ID: "jinju", Name: "진주시", LocalizedName: "경상남도 진주시", Category: model.RegionCategoryCity, Parent: ProvinceID},
	{ID: "tongyeong", Name: "통영시", LocalizedName: "경상남도 통영시", Category: model.RegionCategoryCity, Parent: ProvinceID},
	{ID: "sacheon", Name: "사천시", LocalizedName: "경상남도 사천시", Category: model.RegionCategoryCity, Parent: ProvinceID},
	{ID: "gimhae", Name: "김해시", LocalizedName: "경상남도 김해시", Category: model.RegionCategoryCity, Parent: ProvinceID},
	{ID: "miryang", Name: "밀양시", LocalizedName: "경상남도 밀양시", Category: model.RegionCategoryCity, Parent: ProvinceID},
	{ID: "geoje", Name: "거제시", LocalizedName: "경상남도 거제시", Category: model.RegionCategoryCity, Parent: ProvinceID},
	{ID: "yangsan", Name: "양산시", LocalizedName: "경상남도 양산시", Category: model.RegionCategoryCity, Parent: ProvinceID},
	{ID: "uiryeong", Name: "의령군", LocalizedName: "경상남도 의령군", Category: model.RegionCategoryCounty, Parent: ProvinceID},
	{ID: "haman", Name: "함안군", LocalizedName: "경상남도 함안군", Category: model.RegionCategoryCounty, Parent: ProvinceID},
	{ID: "changnyeong", Name: "창녕군", LocalizedName: "경상남도 창녕군", Category: model.RegionCategoryCounty, Parent: ProvinceID},
	{ID: "goseong", Name: "고성군", LocalizedName: "경상남도 고성군", Category: model.RegionCategoryCounty, Parent: ProvinceID},
	{ID: "namhae", Name: "남해군", LocalizedName: "경상남도 남해군", Category: model.RegionCategoryCounty, Parent: ProvinceID},
	{ID: "hadong", Name: "하동군", LocalizedName: "경상남도 하동군", Category: model.RegionCategoryCounty, Parent: ProvinceID},
	{ID: "sancheong", Name: "산청군", LocalizedName: "경상남도 산청군", Category: model.RegionCategoryCounty, Parent: ProvinceID},
	{ID: "hamyang", Name: "함양군", LocalizedName: "경상남도 함양군", Category: model.RegionCategoryCounty, Parent: ProvinceID},
	{ID: "geochang", Name: "거창군", LocalizedName: "경상남도 거창군", Category: model.RegionCategoryCounty, Parent: ProvinceID},
	{ID: "hapcheon", Name: "합천군", LocalizedName: "경상남도 합천군", Category: model.RegionCategoryCounty, Parent: ProvinceID},
	{ID: "gyeongnam-edu", Name: "경남교육청", LocalizedName: "경상남도교육청", Category: model.RegionCategoryAgency, Parent: ProvinceID},
}

// byID はIDから地域を引くためのインデックス。
var byID = func() map[string]model.Region {
	m := make(map[string]model.Region, len(catalog))
	for _, r := range catalog {
		m[r.ID] = r
	}
	return m
}()

// byLabel はID・短縮名・正式名のいずれからも正規IDを引けるインデックス。
// 短縮名が重複する場合は先に定義された地域を優先する。
var byLabel = func() map[string]string {
	m := make(map[string]string, len(catalog)*3)
	for _, r := range catalog {
		for _, label := range []string{r.ID, r.Name, r.LocalizedName} {
			if _, exists := m[label]; !exists {
				m[label] = r.ID
			}
		}
	}
	return m
}()

// Catalog は地域カタログのコピーを返す。
func Catalog() []model.Region {
	out := make([]model.Region, len(catalog))
	copy(out, catalog)
	return out
}

// Get はIDで地域を取得する。
func Get(id string) (model.Region, bool) {
	r, ok := byID[id]
	return r, ok
}

// Lookup はID・短縮名・正式名のいずれかで地域を検索する。
func Lookup(label string) (model.Region, bool) {
	id, ok := byLabel[strings.TrimSpace(label)]
	if !ok {
		return model.Region{}, false
	}
	return byID[id], true
}

// Canonical はラベルを正規IDに変換する。
// カタログに存在しないラベルはそのまま返す。
func Canonical(label string) string {
	if r, ok := Lookup(label); ok {
		return r.ID
	}
	return label
}

// Children は広域市・道の配下にある地域のIDを、教育庁を含めてカタログ順に返す。
func Children(groupID string) []string {
	var ids []string
	for _, r := range catalog {
		if r.Parent == groupID {
			ids = append(ids, r.ID)
		}
	}
	return ids
}

// IsScraperTarget はスクレイパーの実行対象として有効なIDかどうかを返す。
// スクレイパーはID空間のみを受け付け、名称では解決しない。
func IsScraperTarget(id string) bool {
	_, ok := byID[id]
	return ok
}

// ScraperIDs はスクレイパーの実行対象となる全地域のIDをカタログ順に返す。
func ScraperIDs() []string {
	ids := make([]string, len(catalog))
	for i, r := range catalog {
		ids[i] = r.ID
	}
	return ids
}
