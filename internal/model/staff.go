package model

// Position はスタッフの職位を表す。
type Position string

const (
	// PositionChiefEditor は編集局長。全地域にアクセスできる。
	PositionChiefEditor Position = "chief-editor"
	// PositionBranchManager は支社長。担当する広域市・道の配下地域にアクセスできる。
	PositionBranchManager Position = "branch-manager"
	// PositionEditor はデスク。
	PositionEditor Position = "editor"
	// PositionReporter は記者。
	PositionReporter Position = "reporter"
	// PositionIntern は見習い記者。
	PositionIntern Position = "intern"
)

// StaffMember は記者・編集者などのスタッフを表す。
// Regionは地域カタログのID、短縮名、正式名のいずれかで指定される。
type StaffMember struct {
	ID       string   `json:"id"`
	Position Position `json:"position"`
	Region   string   `json:"region"`
}

// Content は編集権限の判定に必要な記事の属性を表す。
type Content struct {
	ID           string `json:"id"`
	AuthorID     string `json:"author_id"`
	SourceRegion string `json:"source_region"`
}
