package handler

import (
	"net/http"

	"github.com/hitoshi/newsdesk/internal/middleware"
	"github.com/hitoshi/newsdesk/internal/model"
	"github.com/hitoshi/newsdesk/internal/region"
)

// RegionHandler は地域カタログとアクセス判定のHTTPハンドラー。
// 判定は純粋関数のため依存を持たない。
type RegionHandler struct{}

// NewRegionHandler はRegionHandlerを生成する。
func NewRegionHandler() *RegionHandler {
	return &RegionHandler{}
}

// accessibleResponse はアクセス可能地域のAPIレスポンス。
// unrestrictedがtrueの場合、regionsは空で全地域を意味する。
type accessibleResponse struct {
	Success      bool     `json:"success"`
	Unrestricted bool     `json:"unrestricted"`
	Regions      []string `json:"regions"`
}

// canEditRequest は編集権限判定リクエストのボディ。
type canEditRequest struct {
	Staff   model.StaffMember `json:"staff"`
	Content model.Content     `json:"content"`
}

// ListRegions は地域カタログを返す。
// GET /api/regions
func (h *RegionHandler) ListRegions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"regions": region.Catalog(),
	})
}

// AccessibleRegions は職位と担当地域から閲覧可能な地域を返す。
// GET /api/regions/accessible?position=&region=
func (h *RegionHandler) AccessibleRegions(w http.ResponseWriter, r *http.Request) {
	position := r.URL.Query().Get("position")
	if position == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     model.ErrCodeInvalidRequest,
			Message:  "position が指定されていません。",
			Category: "validation",
			Action:   "職位を指定してください。",
			Field:    "position",
		})
		return
	}

	scope := region.AccessibleRegions(model.Position(position), r.URL.Query().Get("region"))
	regions := scope.Regions()
	if regions == nil {
		regions = []string{}
	}

	writeJSON(w, http.StatusOK, accessibleResponse{
		Success:      true,
		Unrestricted: scope.Unrestricted(),
		Regions:      regions,
	})
}

// CanEdit はスタッフが記事を編集できるかどうかを返す。
// POST /api/access/can-edit
func (h *RegionHandler) CanEdit(w http.ResponseWriter, r *http.Request) {
	var req canEditRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{
		"success": true,
		"allowed": region.CanEditContent(req.Staff, req.Content),
	})
}
