package handlers

import (
	"bytes"
	"context"
	"net/http"
	"time"
)

func (h *Handler) GetAssets(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	assets, err := h.Controller.GetAssets(ctx, userID)
	if err != nil {
		h.HandleErrors(w, err)
		return
	}
	h.respond(w, r, assets, http.StatusOK)
}

func (h *Handler) GetAssetSummary(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	summary, err := h.Controller.GetSummary(ctx, userID)
	if err != nil {
		h.HandleErrors(w, err)
		return
	}
	h.respond(w, r, summary, http.StatusOK)
}

func (h *Handler) GetCategories(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	categories, err := h.Controller.GetCategories(ctx)
	if err != nil {
		h.HandleErrors(w, err)
		return
	}
	h.respond(w, r, categories, http.StatusOK)
}

// GetReport serves the rendered dashboard report, HTML by default and
// PDF with ?format=pdf.
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	if r.URL.Query().Get("format") == "pdf" {
		pdf, err := h.Controller.ExportReportPDF(ctx, userID)
		if err != nil {
			h.HandleErrors(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="report.pdf"`)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(pdf)
		return
	}

	html, err := h.Controller.ExportReportHTML(ctx, userID)
	if err != nil {
		h.HandleErrors(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(html))
}

func (h *Handler) ExportAssets(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	file, err := h.Controller.ExportXLSX(ctx, userID)
	if err != nil {
		h.HandleErrors(w, err)
		return
	}

	var buffer bytes.Buffer
	if err := file.Write(&buffer); err != nil {
		h.HandleErrors(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="assets.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buffer.Bytes())
}
