package binary

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"net/http"

	"github.com/gosfs/server/internal/models"
)

// EncodeStatInfo encodes the fields spec.md §4.G's stat/fstat copies out of
// an inode: size, directory bit, setuid bit, ACL vector.
func EncodeStatInfo(stat *models.StatInfo) ([]byte, error) {
	buf := new(bytes.Buffer)

	// size (int64, 8 bytes)
	if err := binary.Write(buf, binary.LittleEndian, stat.Size); err != nil {
		return nil, fmt.Errorf("failed to encode size: %w", err)
	}

	// is_directory (uint8, 1 byte)
	if err := binary.Write(buf, binary.LittleEndian, boolToByte(stat.IsDirectory)); err != nil {
		return nil, fmt.Errorf("failed to encode is_directory: %w", err)
	}

	// is_setuid (uint8, 1 byte)
	if err := binary.Write(buf, binary.LittleEndian, boolToByte(stat.IsSetUID)); err != nil {
		return nil, fmt.Errorf("failed to encode is_setuid: %w", err)
	}

	for _, acl := range stat.ACL {
		if err := binary.Write(buf, binary.LittleEndian, acl.UID); err != nil {
			return nil, fmt.Errorf("failed to encode acl uid: %w", err)
		}
		if err := binary.Write(buf, binary.LittleEndian, acl.Permissions); err != nil {
			return nil, fmt.Errorf("failed to encode acl permissions: %w", err)
		}
		if err := binary.Write(buf, binary.LittleEndian, boolToByte(acl.Valid)); err != nil {
			return nil, fmt.Errorf("failed to encode acl valid: %w", err)
		}
	}

	return buf.Bytes(), nil
}

// EncodeDirentInfo encodes one entry returned by opendir/read_entry.
func EncodeDirentInfo(d *models.DirentInfo) ([]byte, error) {
	buf := new(bytes.Buffer)

	// name (char[128], null-terminated, padded with zeros)
	nameBytes := make([]byte, 128)
	copy(nameBytes, d.Name)
	if _, err := buf.Write(nameBytes); err != nil {
		return nil, fmt.Errorf("failed to encode name: %w", err)
	}

	// ino (int64, 8 bytes)
	if err := binary.Write(buf, binary.LittleEndian, d.Ino); err != nil {
		return nil, fmt.Errorf("failed to encode ino: %w", err)
	}

	// is_directory (uint8, 1 byte)
	if err := binary.Write(buf, binary.LittleEndian, boolToByte(d.IsDirectory)); err != nil {
		return nil, fmt.Errorf("failed to encode is_directory: %w", err)
	}

	return buf.Bytes(), nil
}

// handleFieldSize is the fixed width a handle string is padded into when it
// shares a response body with other fields, mirroring the padded-name
// convention EncodeDirentInfo uses for filenames.
const handleFieldSize = 64

// EncodeOpenResult encodes the body of an open response: the new file
// handle (opaque to the client beyond "pass it back to read/write/seek/
// close"), followed by the resolved inode number.
func EncodeOpenResult(handle string, ino int64) ([]byte, error) {
	buf := new(bytes.Buffer)

	handleBytes := make([]byte, handleFieldSize)
	copy(handleBytes, handle)
	if _, err := buf.Write(handleBytes); err != nil {
		return nil, fmt.Errorf("failed to encode handle: %w", err)
	}

	if err := binary.Write(buf, binary.LittleEndian, ino); err != nil {
		return nil, fmt.Errorf("failed to encode ino: %w", err)
	}

	return buf.Bytes(), nil
}

func WriteResponse(w http.ResponseWriter, code int64, data []byte) error {
	response := new(bytes.Buffer)

	// Response code (int64, 8 bytes)
	if err := binary.Write(response, binary.LittleEndian, code); err != nil {
		return fmt.Errorf("failed to write response code: %w", err)
	}

	if data != nil {
		if _, err := response.Write(data); err != nil {
			return fmt.Errorf("failed to write response data: %w", err)
		}
	}

	body := response.Bytes()

	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(body)))
	w.Header().Set("Connection", "close")
	w.WriteHeader(http.StatusOK)

	_, err := w.Write(body)
	return err
}

func WriteUint32Response(w http.ResponseWriter, code int64, value uint32) error {
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, value); err != nil {
		return err
	}
	return WriteResponse(w, code, buf.Bytes())
}

func WriteInt64Response(w http.ResponseWriter, code int64, value int64) error {
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, value); err != nil {
		return err
	}
	return WriteResponse(w, code, buf.Bytes())
}

func boolToByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
