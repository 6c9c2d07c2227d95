package httpapi

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"sizes/internal/backup"
	blobcore "sizes/internal/blob/core"
	"sizes/internal/prefs"
	"sizes/pkg/share"
)

func (h *Handler) exportDocument(c *gin.Context) {
	doc, err := h.Service.Export(c.Request.Context())
	if err != nil {
		h.writeFailure(c, err)
		return
	}
	var buf bytes.Buffer
	if err := backup.WriteDocument(&buf, doc); err != nil {
		h.writeFailure(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+backup.FileName(doc.ExportedAt)+`"`)
	c.Data(http.StatusOK, "application/json", buf.Bytes())
}

func (h *Handler) importDocument(c *gin.Context) {
	body := http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload())
	doc, err := backup.ParseDocument(body)
	if err != nil {
		h.writeFailure(c, err)
		return
	}
	counts, err := h.Service.Import(c.Request.Context(), doc)
	if err != nil {
		h.writeFailure(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"counts": counts})
}

func (h *Handler) listBackups(c *gin.Context) {
	entries, err := h.Archive.List(c.Request.Context())
	if err != nil {
		h.writeFailure(c, err)
		return
	}
	if entries == nil {
		entries = []backup.Entry{}
	}
	writeJSON(c, http.StatusOK, gin.H{"backups": entries})
}

func (h *Handler) saveBackup(c *gin.Context) {
	doc, err := h.Service.Export(c.Request.Context())
	if err != nil {
		h.writeFailure(c, err)
		return
	}
	entry, err := h.Archive.Save(c.Request.Context(), doc)
	if err != nil {
		h.writeFailure(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, gin.H{"backup": entry})
}

func (h *Handler) backupLink(c *gin.Context) {
	key := c.Query("key")
	if key == "" {
		writeError(c, http.StatusBadRequest, "key is required")
		return
	}
	link, err := h.Archive.URL(c.Request.Context(), key)
	if errors.Is(err, blobcore.ErrUnsupported) {
		writeError(c, http.StatusNotImplemented, "download links are not supported by this blob driver")
		return
	}
	if err != nil {
		h.writeFailure(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"url": link})
}

type restoreRequest struct {
	Key string `json:"key" binding:"required"`
}

func (h *Handler) restoreBackup(c *gin.Context) {
	var req restoreRequest
	if !h.bindJSON(c, &req) {
		return
	}
	doc, err := h.Archive.Load(c.Request.Context(), req.Key)
	if err != nil {
		h.writeFailure(c, err)
		return
	}
	counts, err := h.Service.Import(c.Request.Context(), doc)
	if err != nil {
		h.writeFailure(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"counts": counts})
}

func (h *Handler) getPreferences(c *gin.Context) {
	writeJSON(c, http.StatusOK, gin.H{"preferences": h.Prefs.Current()})
}

func (h *Handler) updatePreferences(c *gin.Context) {
	var patch prefs.Patch
	if !h.bindJSON(c, &patch) {
		return
	}
	updated, err := h.Prefs.Update(c.Request.Context(), patch)
	if err != nil {
		h.writeFailure(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"preferences": updated})
}

// decodeShare renders a shared profile. Only the token is used, nothing is
// read from the local store.
func (h *Handler) decodeShare(c *gin.Context) {
	payload, err := share.Decode(c.Param("token"))
	if err != nil {
		h.writeFailure(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"profile": payload})
}
