package api

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/climatehealth/platform/pkg/common/apperr"
	"github.com/climatehealth/platform/pkg/common/models"
	"github.com/climatehealth/platform/pkg/export"
	"github.com/climatehealth/platform/pkg/observability/metrics"
	"github.com/gorilla/mux"
)

const maxMultipartMemory = 32 << 20

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, err)
			return
		}
		writeError(w, r, invalid("No file uploaded"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, invalid("No file uploaded"))
		return
	}
	defer file.Close()

	name := filepath.Base(strings.ReplaceAll(header.Filename, `\`, "/"))
	info, err := h.Store.Save(name, file)
	if err != nil {
		writeError(w, r, err)
		return
	}
	metrics.UploadAccepted()

	writeJSON(w, http.StatusOK, models.UploadResponse{
		Message:  "CSV uploaded successfully!",
		Filename: info.Name,
		Path:     info.Path,
		Size:     info.Size,
	})
}

func (h *Handler) handleFiles(w http.ResponseWriter, r *http.Request) {
	files, err := h.Store.List()
	if err != nil {
		writeError(w, r, apperr.Wrap(apperr.KindInternal, err, "list uploads"))
		return
	}
	writeJSON(w, http.StatusOK, models.FilesResponse{Files: files})
}

func (h *Handler) handleView(w http.ResponseWriter, r *http.Request) {
	filename := mux.Vars(r)["filename"]
	rows, err := intParam(r, "rows", 0)
	if err != nil {
		writeError(w, r, err)
		return
	}

	frame, data, err := h.Store.Preview(filename, rows)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if h.Masker != nil {
		if frame == nil {
			if frame, err = h.Store.ReadFrame(filename); err != nil {
				writeError(w, r, err)
				return
			}
		}
		masked, _ := h.Masker.MaskFrame(frame)
		if data, err = masked.CSV(); err != nil {
			writeError(w, r, apperr.Wrap(apperr.KindInternal, err, "render preview"))
			return
		}
	}
	writeJSON(w, http.StatusOK, models.ViewResponse{Data: data})
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	s, err := h.Summarizer.Summarize(r.Context(), mux.Vars(r)["filename"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	filename := mux.Vars(r)["filename"]
	frame, err := h.Store.ReadFrame(filename)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if h.Masker != nil {
		frame, _ = h.Masker.MaskFrame(frame)
	}

	data, err := export.Workbook(frame, filename)
	if err != nil {
		writeError(w, r, apperr.Wrap(apperr.KindInternal, err, "build workbook"))
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.xlsx"`, strings.TrimSuffix(filename, filepath.Ext(filename))))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
