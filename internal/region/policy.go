package region

import (
	"github.com/hitoshi/newsdesk/internal/model"
)

// AccessScope はスタッフが閲覧・編集できる地域の範囲を表す。
// 全地域（無制限）か、具体的な地域の集合のいずれか。
// 判定のたびに職位と担当地域から算出され、キャッシュも永続化もしない。
type AccessScope struct {
	all     bool
	regions []string
	set     map[string]struct{}
}

// Unrestricted は全地域にアクセスできるスコープかどうかを返す。
func (s AccessScope) Unrestricted() bool {
	return s.all
}

// Regions はスコープに含まれる地域を返す。無制限スコープの場合はnil。
func (s AccessScope) Regions() []string {
	if s.all {
		return nil
	}
	out := make([]string, len(s.regions))
	copy(out, s.regions)
	return out
}

// Contains は対象地域がスコープに含まれるかどうかを返す。
// 対象はID・短縮名・正式名のいずれでもよい。
func (s AccessScope) Contains(target string) bool {
	if s.all {
		return true
	}
	_, ok := s.set[Canonical(target)]
	return ok
}

func allRegions() AccessScope {
	return AccessScope{all: true}
}

func regionsOf(labels ...string) AccessScope {
	s := AccessScope{set: make(map[string]struct{}, len(labels))}
	for _, label := range labels {
		id := Canonical(label)
		if _, dup := s.set[id]; dup {
			continue
		}
		s.set[id] = struct{}{}
		s.regions = append(s.regions, id)
	}
	return s
}

// AccessibleRegions は職位と担当地域から閲覧可能な地域の範囲を算出する。
//
//   - 編集局長: 担当地域に関係なく全地域
//   - 支社長: 担当が広域市・道（短縮名・正式名どちらでも可）なら配下の全地域と教育庁、
//     それ以外なら担当地域のみ
//   - その他の職位: 担当地域のみ
//
// カタログにないラベルも担当地域のみの集合として扱い、エラーにはならない。
func AccessibleRegions(position model.Position, regionLabel string) AccessScope {
	switch position {
	case model.PositionChiefEditor:
		return allRegions()
	case model.PositionBranchManager:
		if r, ok := Lookup(regionLabel); ok && r.IsGrouping() {
			return regionsOf(Children(r.ID)...)
		}
		return regionsOf(regionLabel)
	default:
		return regionsOf(regionLabel)
	}
}

// CanAccessRegion は職位と担当地域から、対象地域の記事にアクセスできるかを判定する。
func CanAccessRegion(position model.Position, regionLabel, target string) bool {
	return AccessibleRegions(position, regionLabel).Contains(target)
}

// CanEditContent はスタッフが記事を編集できるかを判定する。
// 自分が執筆した記事は担当地域に関係なく常に編集できる。
func CanEditContent(staff model.StaffMember, content model.Content) bool {
	if content.AuthorID == staff.ID {
		return true
	}
	return CanAccessRegion(staff.Position, staff.Region, content.SourceRegion)
}
