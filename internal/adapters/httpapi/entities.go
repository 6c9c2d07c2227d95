package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"sizes/internal/photo"
	"sizes/internal/recommend"
	"sizes/pkg/domain"
	"sizes/pkg/share"
)

type profileView struct {
	domain.Profile
	NeedsReview bool `json:"needsReview"`
}

func (h *Handler) viewProfile(p domain.Profile) profileView {
	return profileView{Profile: p, NeedsReview: domain.NeedsSizeReview(p, h.Service.Now())}
}

// MarshalJSON keeps the profile's own encoding and adds the review flag.
func (v profileView) MarshalJSON() ([]byte, error) {
	raw, err := json.Marshal(v.Profile)
	if err != nil {
		return nil, err
	}
	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	fields["needsReview"] = json.RawMessage(strconv.FormatBool(v.NeedsReview))
	return json.Marshal(fields)
}

func (h *Handler) listProfiles(c *gin.Context) {
	profiles := h.Service.ListProfiles()
	out := make([]profileView, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, h.viewProfile(p))
	}
	writeJSON(c, http.StatusOK, gin.H{"profiles": out})
}

func (h *Handler) createProfile(c *gin.Context) {
	var in domain.Profile
	if !h.bindJSON(c, &in) {
		return
	}
	created, _, err := h.Service.CreateProfile(c.Request.Context(), in)
	if err != nil {
		h.writeFailure(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, gin.H{"profile": h.viewProfile(created)})
}

func (h *Handler) getProfile(c *gin.Context) {
	p, ok := h.Service.GetProfile(c.Param("id"))
	if !ok {
		h.writeFailure(c, domain.NotFoundError{Entity: domain.EntityProfile, ID: c.Param("id")})
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"profile": h.viewProfile(p)})
}

func (h *Handler) updateProfile(c *gin.Context) {
	var patch domain.ProfilePatch
	if !h.bindJSON(c, &patch) {
		return
	}
	updated, _, err := h.Service.UpdateProfile(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		h.writeFailure(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"profile": h.viewProfile(updated)})
}

func (h *Handler) deleteProfile(c *gin.Context) {
	if _, err := h.Service.DeleteProfile(c.Request.Context(), c.Param("id")); err != nil {
		h.writeFailure(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) checkProfile(c *gin.Context) {
	updated, err := h.Service.MarkProfileChecked(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeFailure(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"profile": h.viewProfile(updated)})
}

func (h *Handler) shareProfile(c *gin.Context) {
	token, err := h.Service.ShareToken(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeFailure(c, err)
		return
	}
	resp := gin.H{"token": token}
	if h.PublicBaseURL != "" {
		resp["url"] = share.Link(h.PublicBaseURL, token)
	}
	writeJSON(c, http.StatusOK, resp)
}

func (h *Handler) recommendations(c *gin.Context) {
	p, ok := h.Service.GetProfile(c.Param("id"))
	if !ok {
		h.writeFailure(c, domain.NotFoundError{Entity: domain.EntityProfile, ID: c.Param("id")})
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"recommendations": recommend.All(p)})
}

func (h *Handler) reviews(c *gin.Context) {
	due := h.Service.ProfilesNeedingReview()
	out := make([]profileView, 0, len(due))
	for _, p := range due {
		out = append(out, h.viewProfile(p))
	}
	writeJSON(c, http.StatusOK, gin.H{"profiles": out})
}

func (h *Handler) listBrands(c *gin.Context) {
	profileID := c.Param("id")
	if _, ok := h.Service.GetProfile(profileID); !ok {
		h.writeFailure(c, domain.NotFoundError{Entity: domain.EntityProfile, ID: profileID})
		return
	}
	brands := h.Service.SearchBrands(profileID, c.Query("q"))
	if brands == nil {
		brands = []domain.Brand{}
	}
	writeJSON(c, http.StatusOK, gin.H{"brands": brands})
}

func (h *Handler) createBrand(c *gin.Context) {
	var in domain.Brand
	if !h.bindJSON(c, &in) {
		return
	}
	in.ProfileID = c.Param("id")
	created, _, err := h.Service.CreateBrand(c.Request.Context(), in)
	if err != nil {
		h.writeFailure(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, gin.H{"brand": created})
}

func (h *Handler) getBrand(c *gin.Context) {
	b, ok := h.Service.GetBrand(c.Param("id"))
	if !ok {
		h.writeFailure(c, domain.NotFoundError{Entity: domain.EntityBrand, ID: c.Param("id")})
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"brand": b})
}

func (h *Handler) updateBrand(c *gin.Context) {
	var patch domain.BrandPatch
	if !h.bindJSON(c, &patch) {
		return
	}
	updated, _, err := h.Service.UpdateBrand(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		h.writeFailure(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"brand": updated})
}

func (h *Handler) deleteBrand(c *gin.Context) {
	if _, err := h.Service.DeleteBrand(c.Request.Context(), c.Param("id")); err != nil {
		h.writeFailure(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) listSizes(c *gin.Context) {
	brandID := c.Param("id")
	if _, ok := h.Service.GetBrand(brandID); !ok {
		h.writeFailure(c, domain.NotFoundError{Entity: domain.EntityBrand, ID: brandID})
		return
	}
	sizes := h.Service.ListSizesByBrand(brandID)
	if sizes == nil {
		sizes = []domain.Size{}
	}
	writeJSON(c, http.StatusOK, gin.H{"sizes": sizes})
}

func (h *Handler) createSize(c *gin.Context) {
	var in domain.Size
	if !h.bindJSON(c, &in) {
		return
	}
	in.BrandID = c.Param("id")
	created, _, err := h.Service.CreateSize(c.Request.Context(), in)
	if err != nil {
		h.writeFailure(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, gin.H{"size": created})
}

func (h *Handler) getSize(c *gin.Context) {
	s, ok := h.Service.GetSize(c.Param("id"))
	if !ok {
		h.writeFailure(c, domain.NotFoundError{Entity: domain.EntitySize, ID: c.Param("id")})
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"size": s})
}

func (h *Handler) updateSize(c *gin.Context) {
	var patch domain.SizePatch
	if !h.bindJSON(c, &patch) {
		return
	}
	if patch.Photo.Value != nil && *patch.Photo.Value != "" {
		if err := photo.Validate(*patch.Photo.Value); err != nil {
			h.writeFailure(c, err)
			return
		}
	}
	updated, _, err := h.Service.UpdateSize(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		h.writeFailure(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"size": updated})
}

func (h *Handler) deleteSize(c *gin.Context) {
	if _, err := h.Service.DeleteSize(c.Request.Context(), c.Param("id")); err != nil {
		h.writeFailure(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) deleteRecord(c *gin.Context) {
	if _, err := h.Service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.writeFailure(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) getPhoto(c *gin.Context) {
	s, ok := h.Service.GetSize(c.Param("id"))
	if !ok || s.Photo == nil {
		h.writeFailure(c, domain.NotFoundError{Entity: "photo", ID: c.Param("id")})
		return
	}
	mediaType, raw, err := photo.Decode(*s.Photo)
	if err != nil {
		h.writeFailure(c, err)
		return
	}
	c.Data(http.StatusOK, mediaType, raw)
}

func (h *Handler) uploadPhoto(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload())
	file, err := c.FormFile("photo")
	if err != nil {
		writeError(c, http.StatusBadRequest, "photo file is required")
		return
	}
	f, err := file.Open()
	if err != nil {
		h.writeFailure(c, err)
		return
	}
	defer f.Close()

	dataURL, err := photo.Normalize(f)
	if err != nil {
		h.writeFailure(c, err)
		return
	}
	updated, _, err := h.Service.UpdateSize(c.Request.Context(), c.Param("id"), domain.SizePatch{Photo: domain.NullableOf(dataURL)})
	if err != nil {
		h.writeFailure(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"size": updated})
}

func (h *Handler) deletePhoto(c *gin.Context) {
	updated, _, err := h.Service.UpdateSize(c.Request.Context(), c.Param("id"), domain.SizePatch{Photo: domain.Null[string]()})
	if err != nil {
		h.writeFailure(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"size": updated})
}
