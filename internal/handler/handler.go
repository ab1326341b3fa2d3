package handler

import (
	"encoding/base64"
	"io"
	"net/http"
	"strconv"

	"github.com/gosfs/server/internal/gosfs/fserrors"
	"github.com/gosfs/server/internal/service"
	"github.com/gosfs/server/pkg/binary"
	"github.com/gosfs/server/pkg/logging"
	"github.com/gosfs/server/pkg/logging/slogext"
)

type Handler struct {
	service service.FileSystemService
}

func NewHandler(service service.FileSystemService) *Handler {
	return &Handler{service: service}
}

func (h *Handler) HandleFormat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name := r.URL.Query().Get("name")
	device := r.URL.Query().Get("device")
	blocksStr := r.URL.Query().Get("blocks")
	if name == "" || device == "" || blocksStr == "" {
		binary.WriteResponse(w, fserrors.EINVAL_NEG, nil)
		return
	}

	blocks, err := strconv.ParseInt(blocksStr, 10, 64)
	if err != nil {
		binary.WriteResponse(w, fserrors.EINVAL_NEG, nil)
		return
	}

	if err := h.service.Format(ctx, name, device, blocks); err != nil {
		binary.WriteResponse(w, mapErrorToCode(err), nil)
		return
	}

	binary.WriteResponse(w, 0, nil)
}

func (h *Handler) HandleMount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name := r.URL.Query().Get("name")
	device := r.URL.Query().Get("device")
	if name == "" || device == "" {
		binary.WriteResponse(w, fserrors.EINVAL_NEG, nil)
		return
	}

	if err := h.service.Mount(ctx, name, device); err != nil {
		binary.WriteResponse(w, mapErrorToCode(err), nil)
		return
	}

	binary.WriteResponse(w, 0, nil)
}

func (h *Handler) HandleSync(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name := r.URL.Query().Get("name")
	if name == "" {
		binary.WriteResponse(w, fserrors.EINVAL_NEG, nil)
		return
	}

	if err := h.service.Sync(ctx, name); err != nil {
		binary.WriteResponse(w, mapErrorToCode(err), nil)
		return
	}

	binary.WriteResponse(w, 0, nil)
}

func (h *Handler) HandleStat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	const op = "handler.HandleStat"

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name := r.URL.Query().Get("name")
	path := r.URL.Query().Get("path")
	if name == "" || path == "" {
		binary.WriteResponse(w, fserrors.EINVAL_NEG, nil)
		return
	}

	stat, err := h.service.Stat(ctx, name, path)
	if err != nil {
		binary.WriteResponse(w, mapErrorToCode(err), nil)
		return
	}

	data, err := binary.EncodeStatInfo(stat)
	if err != nil {
		logging.GetLoggerFromContextWithOp(ctx, op).Error("failed to encode stat", slogext.Err(err))
		binary.WriteResponse(w, fserrors.ENOMEM_NEG, nil)
		return
	}

	binary.WriteResponse(w, 0, data)
}

func (h *Handler) HandleMkdir(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name := r.URL.Query().Get("name")
	path := r.URL.Query().Get("path")
	if name == "" || path == "" {
		binary.WriteResponse(w, fserrors.EINVAL_NEG, nil)
		return
	}

	newIno, err := h.service.Mkdir(ctx, name, path)
	if err != nil {
		binary.WriteResponse(w, mapErrorToCode(err), nil)
		return
	}

	binary.WriteInt64Response(w, 0, newIno)
}

func (h *Handler) HandleOpenDir(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name := r.URL.Query().Get("name")
	path := r.URL.Query().Get("path")
	if name == "" || path == "" {
		binary.WriteResponse(w, fserrors.EINVAL_NEG, nil)
		return
	}

	handle, err := h.service.OpenDir(ctx, name, path)
	if err != nil {
		binary.WriteResponse(w, mapErrorToCode(err), nil)
		return
	}

	binary.WriteResponse(w, 0, []byte(handle))
}

func (h *Handler) HandleReadDir(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	const op = "handler.HandleReadDir"

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	dirHandle := r.URL.Query().Get("dirhandle")
	if dirHandle == "" {
		binary.WriteResponse(w, fserrors.EINVAL_NEG, nil)
		return
	}

	entry, err := h.service.ReadDir(ctx, dirHandle)
	if err != nil {
		binary.WriteResponse(w, mapErrorToCode(err), nil)
		return
	}
	if entry == nil {
		// snapshot exhausted, not an error
		binary.WriteResponse(w, fserrors.ENOENT_NEG, nil)
		return
	}

	data, err := binary.EncodeDirentInfo(entry)
	if err != nil {
		logging.GetLoggerFromContextWithOp(ctx, op).Error("failed to encode dirent", slogext.Err(err))
		binary.WriteResponse(w, fserrors.ENOMEM_NEG, nil)
		return
	}

	binary.WriteResponse(w, 0, data)
}

func (h *Handler) HandleCloseDir(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	dirHandle := r.URL.Query().Get("dirhandle")
	if dirHandle == "" {
		binary.WriteResponse(w, fserrors.EINVAL_NEG, nil)
		return
	}

	if err := h.service.CloseDir(ctx, dirHandle); err != nil {
		binary.WriteResponse(w, mapErrorToCode(err), nil)
		return
	}

	binary.WriteResponse(w, 0, nil)
}

func (h *Handler) HandleOpen(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	const op = "handler.HandleOpen"

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name := r.URL.Query().Get("name")
	path := r.URL.Query().Get("path")
	if name == "" || path == "" {
		binary.WriteResponse(w, fserrors.EINVAL_NEG, nil)
		return
	}

	create := r.URL.Query().Get("create") == "1"
	writable := r.URL.Query().Get("writable") == "1"

	fileHandle, ino, err := h.service.Open(ctx, name, path, create, writable)
	if err != nil {
		binary.WriteResponse(w, mapErrorToCode(err), nil)
		return
	}

	data, err := binary.EncodeOpenResult(fileHandle, ino)
	if err != nil {
		logging.GetLoggerFromContextWithOp(ctx, op).Error("failed to encode open result", slogext.Err(err))
		binary.WriteResponse(w, fserrors.ENOMEM_NEG, nil)
		return
	}

	binary.WriteResponse(w, 0, data)
}

func (h *Handler) HandleRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	fileHandle := r.URL.Query().Get("filehandle")
	lengthStr := r.URL.Query().Get("length")
	if fileHandle == "" || lengthStr == "" {
		binary.WriteResponse(w, fserrors.EINVAL_NEG, nil)
		return
	}

	length, err := strconv.Atoi(lengthStr)
	if err != nil {
		binary.WriteResponse(w, fserrors.EINVAL_NEG, nil)
		return
	}

	data, err := h.service.Read(ctx, fileHandle, length)
	if err != nil {
		binary.WriteResponse(w, mapErrorToCode(err), nil)
		return
	}

	binary.WriteResponse(w, 0, data)
}

func (h *Handler) HandleWrite(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	fileHandle := r.URL.Query().Get("filehandle")
	dataB64 := r.URL.Query().Get("data")
	if fileHandle == "" {
		binary.WriteResponse(w, fserrors.EINVAL_NEG, nil)
		return
	}

	data, err := base64.StdEncoding.DecodeString(dataB64)
	if err != nil {
		binary.WriteResponse(w, fserrors.EINVAL_NEG, nil)
		return
	}

	written, err := h.service.Write(ctx, fileHandle, data)
	if err != nil {
		binary.WriteResponse(w, mapErrorToCode(err), nil)
		return
	}

	binary.WriteInt64Response(w, 0, written)
}

func (h *Handler) HandleSeek(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	fileHandle := r.URL.Query().Get("filehandle")
	offsetStr := r.URL.Query().Get("offset")
	if fileHandle == "" || offsetStr == "" {
		binary.WriteResponse(w, fserrors.EINVAL_NEG, nil)
		return
	}

	offset, err := strconv.ParseInt(offsetStr, 10, 64)
	if err != nil {
		binary.WriteResponse(w, fserrors.EINVAL_NEG, nil)
		return
	}

	if err := h.service.Seek(ctx, fileHandle, offset); err != nil {
		binary.WriteResponse(w, mapErrorToCode(err), nil)
		return
	}

	binary.WriteResponse(w, 0, nil)
}

func (h *Handler) HandleClose(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	fileHandle := r.URL.Query().Get("filehandle")
	if fileHandle == "" {
		binary.WriteResponse(w, fserrors.EINVAL_NEG, nil)
		return
	}

	if err := h.service.Close(ctx, fileHandle); err != nil {
		binary.WriteResponse(w, mapErrorToCode(err), nil)
		return
	}

	binary.WriteResponse(w, 0, nil)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name := r.URL.Query().Get("name")
	path := r.URL.Query().Get("path")
	if name == "" || path == "" {
		binary.WriteResponse(w, fserrors.EINVAL_NEG, nil)
		return
	}

	if err := h.service.Delete(ctx, name, path); err != nil {
		binary.WriteResponse(w, mapErrorToCode(err), nil)
		return
	}

	binary.WriteResponse(w, 0, nil)
}

func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, `{"status":"ok","service":"gosfs-server"}`)
}

func mapErrorToCode(err error) int64 {
	if serviceErr, ok := err.(*service.ServiceError); ok {
		return serviceErr.Code
	}
	// By default report ENOMEM — an unrecognized error is treated as an
	// internal failure rather than a specific domain outcome.
	return fserrors.ENOMEM_NEG
}
