package handler

import (
	"net/http"
)

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// System endpoints
	mux.HandleFunc("/health", h.HandleHealthCheck)

	// Volume lifecycle
	mux.HandleFunc("/api/format", h.HandleFormat)
	mux.HandleFunc("/api/mount", h.HandleMount)
	mux.HandleFunc("/api/sync", h.HandleSync)

	// Inode and directory operations
	mux.HandleFunc("/api/stat", h.HandleStat)
	mux.HandleFunc("/api/mkdir", h.HandleMkdir)
	mux.HandleFunc("/api/opendir", h.HandleOpenDir)
	mux.HandleFunc("/api/readdir", h.HandleReadDir)
	mux.HandleFunc("/api/closedir", h.HandleCloseDir)
	mux.HandleFunc("/api/delete", h.HandleDelete)

	// File content operations
	mux.HandleFunc("/api/open", h.HandleOpen)
	mux.HandleFunc("/api/read", h.HandleRead)
	mux.HandleFunc("/api/write", h.HandleWrite)
	mux.HandleFunc("/api/seek", h.HandleSeek)
	mux.HandleFunc("/api/close", h.HandleClose)
}
