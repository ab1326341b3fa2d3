package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gosfs/server/internal/catalog"
	"github.com/gosfs/server/internal/gosfs/fserrors"
	"github.com/gosfs/server/internal/gosfs/vfs"
	"github.com/gosfs/server/internal/models"
	"github.com/gosfs/server/pkg/logging"
	"github.com/gosfs/server/pkg/logging/slogext"
)

// FileSystemService is the VFS operation table exposed over HTTP: format
// and mount a volume, then stat/mkdir/opendir/readdir/open/read/write/
// seek/close/delete/sync against it, matching spec.md §5.
type FileSystemService interface {
	Format(ctx context.Context, name, devicePath string, numBlocks int64) error
	Mount(ctx context.Context, name, devicePath string) error
	Sync(ctx context.Context, name string) error

	Stat(ctx context.Context, name string, path string) (*models.StatInfo, error)
	Mkdir(ctx context.Context, name string, path string) (int64, error)

	OpenDir(ctx context.Context, name string, path string) (string, error)
	ReadDir(ctx context.Context, dirHandle string) (*models.DirentInfo, error)
	CloseDir(ctx context.Context, dirHandle string) error

	Open(ctx context.Context, name string, path string, create, writable bool) (string, int64, error)
	Read(ctx context.Context, fileHandle string, length int) ([]byte, error)
	Write(ctx context.Context, fileHandle string, data []byte) (int64, error)
	Seek(ctx context.Context, fileHandle string, offset int64) error
	Close(ctx context.Context, fileHandle string) error

	Delete(ctx context.Context, name string, path string) error
}

type fileSystemService struct {
	vfs     *vfs.VFS
	catalog catalog.Repository
}

// NewFileSystemService wires the in-process VFS operation table to the
// Postgres-backed volume catalog.
func NewFileSystemService(v *vfs.VFS, catalogRepo catalog.Repository) FileSystemService {
	return &fileSystemService{vfs: v, catalog: catalogRepo}
}

// RootIno is the fixed inode number of every volume's root directory,
// re-exported from vfs for handler callers that never otherwise import it.
const RootIno = vfs.RootIno

func (s *fileSystemService) Format(ctx context.Context, name, devicePath string, numBlocks int64) error {
	const op = "service.fileSystemService.Format"

	logger := logging.GetLoggerFromContextWithOp(ctx, op)
	logger.Debug("formatting volume", slog.String("name", name), slog.String("device", devicePath), slog.Int64("blocks", numBlocks))

	if existing, err := s.catalog.Get(ctx, name); err != nil {
		logger.Error("failed to check existing volume", slogext.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	} else if existing != nil {
		return &ServiceError{Code: fserrors.EEXIST, Message: "volume already registered"}
	}

	if err := vfs.Format(devicePath, numBlocks); err != nil {
		logger.Error("format failed", slogext.Err(err))
		return wrapFSError(err)
	}

	if err := s.catalog.Register(ctx, name, devicePath, numBlocks); err != nil {
		if errors.Is(err, catalog.ErrAlreadyRegistered) {
			return &ServiceError{Code: fserrors.EEXIST, Message: "volume already registered"}
		}
		logger.Error("failed to register volume", slogext.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	logger.Info("volume formatted", slog.String("name", name))
	return nil
}

func (s *fileSystemService) Mount(ctx context.Context, name, devicePath string) error {
	const op = "service.fileSystemService.Mount"

	logger := logging.GetLoggerFromContextWithOp(ctx, op)

	if err := s.vfs.Mount(name, devicePath); err != nil {
		logger.Error("mount failed", slogext.Err(err))
		return wrapFSError(err)
	}

	if err := s.catalog.RecordEvent(ctx, name, catalog.EventMounted, devicePath); err != nil {
		logger.Error("failed to record mount event", slogext.Err(err))
	}

	logger.Info("volume mounted", slog.String("name", name))
	return nil
}

func (s *fileSystemService) Sync(ctx context.Context, name string) error {
	const op = "service.fileSystemService.Sync"

	if err := s.vfs.Sync(name); err != nil {
		return wrapFSError(err)
	}
	if err := s.catalog.RecordEvent(ctx, name, catalog.EventSynced, ""); err != nil {
		logging.GetLoggerFromContextWithOp(ctx, op).Error("failed to record sync event", slogext.Err(err))
	}
	return nil
}

func (s *fileSystemService) Stat(ctx context.Context, name string, path string) (*models.StatInfo, error) {
	info, err := s.vfs.Stat(name, path)
	if err != nil {
		return nil, wrapFSError(err)
	}
	return info, nil
}

func (s *fileSystemService) Mkdir(ctx context.Context, name string, path string) (int64, error) {
	const op = "service.fileSystemService.Mkdir"

	logger := logging.GetLoggerFromContextWithOp(ctx, op)

	newIno, err := s.vfs.Mkdir(name, path)
	if err != nil {
		return 0, wrapFSError(err)
	}

	logger.Debug("directory created", slog.String("path", path), slog.Int("ino", newIno))
	return int64(newIno), nil
}

func (s *fileSystemService) OpenDir(ctx context.Context, name string, path string) (string, error) {
	handle, err := s.vfs.OpenDir(name, path)
	if err != nil {
		return "", wrapFSError(err)
	}
	return handle, nil
}

func (s *fileSystemService) ReadDir(ctx context.Context, dirHandle string) (*models.DirentInfo, error) {
	entry, err := s.vfs.ReadDir(dirHandle)
	if err != nil {
		return nil, wrapFSError(err)
	}
	return entry, nil
}

func (s *fileSystemService) CloseDir(ctx context.Context, dirHandle string) error {
	return wrapFSError(s.vfs.CloseDir(dirHandle))
}

func (s *fileSystemService) Open(ctx context.Context, name string, path string, create, writable bool) (string, int64, error) {
	handle, ino, err := s.vfs.Open(name, path, create, writable)
	if err != nil {
		return "", 0, wrapFSError(err)
	}
	return handle, int64(ino), nil
}

func (s *fileSystemService) Read(ctx context.Context, fileHandle string, length int) ([]byte, error) {
	const op = "service.fileSystemService.Read"

	if length < 0 {
		return nil, &ServiceError{Code: fserrors.EINVAL, Message: "negative length"}
	}

	buf := make([]byte, length)
	n, err := s.vfs.Read(fileHandle, buf)
	if err != nil {
		logging.GetLoggerFromContextWithOp(ctx, op).Error("read failed", slogext.Err(err))
		return nil, wrapFSError(err)
	}
	return buf[:n], nil
}

func (s *fileSystemService) Write(ctx context.Context, fileHandle string, data []byte) (int64, error) {
	n, err := s.vfs.Write(fileHandle, data)
	if err != nil {
		return 0, wrapFSError(err)
	}
	return int64(n), nil
}

func (s *fileSystemService) Seek(ctx context.Context, fileHandle string, offset int64) error {
	return wrapFSError(s.vfs.Seek(fileHandle, offset))
}

func (s *fileSystemService) Close(ctx context.Context, fileHandle string) error {
	return wrapFSError(s.vfs.Close(fileHandle))
}

func (s *fileSystemService) Delete(ctx context.Context, name string, path string) error {
	const op = "service.fileSystemService.Delete"

	if err := s.vfs.Delete(name, path); err != nil {
		logging.GetLoggerFromContextWithOp(ctx, op).Error("delete failed", slogext.Err(err), slog.String("path", path))
		return wrapFSError(err)
	}
	return nil
}

// ServiceError is the HTTP-boundary error type, identical in shape to the
// teacher's own ServiceError: a numeric code the handler writes straight
// into the response body, plus a human message for logs.
type ServiceError struct {
	Code    int64
	Message string
}

func (e *ServiceError) Error() string {
	return e.Message
}

func (e *ServiceError) GetCode() int64 {
	return e.Code
}

// wrapFSError converts a *fserrors.Error returned by the vfs package into a
// *ServiceError carrying the wire errno the handler writes back, leaving
// any other error (a propagated bug, not a domain outcome) untouched so it
// still fails closed through mapErrorToCode's default branch.
func wrapFSError(err error) error {
	if err == nil {
		return nil
	}
	var fsErr *fserrors.Error
	if errors.As(err, &fsErr) {
		return &ServiceError{Code: fserrors.WireCode(fsErr.Code), Message: fsErr.Error()}
	}
	return err
}
