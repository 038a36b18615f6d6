package apperrors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEventNotFound           = errors.New("event not found")
	ErrRegistrationNotFound    = errors.New("registration not found")
	ErrCapacityExceeded        = errors.New("event capacity exceeded")
	ErrAlreadyRegistered       = errors.New("already registered for event")
	ErrInvalidInput            = errors.New("invalid input")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrInternalServerError     = errors.New("internal server error")
)

// ValidationError 描述註冊輸入的驗證失敗：缺少必填欄位或 email 格式錯誤
type ValidationError struct {
	MissingFields []string
	InvalidEmail  bool
}

func (e *ValidationError) Error() string {
	if len(e.MissingFields) > 0 {
		return "Campos requeridos faltantes: " + strings.Join(e.MissingFields, ", ")
	}
	if e.InvalidEmail {
		return "Email no válido"
	}
	return "Datos no válidos"
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// StorageError 包裝資料庫層的非預期錯誤（連線中斷、交易失敗）
type StorageError struct {
	Op  string
	Err error
}

func NewStorageError(op string, err error) *StorageError {
	return &StorageError{Op: op, Err: err}
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsStorageError 判斷錯誤鏈中是否含有 StorageError
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
