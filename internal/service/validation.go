package service

import (
	"errors"
	"reflect"
	"strings"

	"cluster-registration/internal/model"
	apperrors "cluster-registration/pkg/app_errors"

	"github.com/go-playground/validator/v10"
)

// validator 建議全域共用一個實例（內部有 struct 快取）
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// 錯誤訊息使用對外的 json 欄位名稱
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// normalizeRegisterInput 去除前後空白、email 轉小寫、空字串的選填欄位視為未填
func normalizeRegisterInput(in model.RegisterInput) model.RegisterInput {
	in.ContactName = strings.TrimSpace(in.ContactName)
	in.ContactEmail = strings.ToLower(strings.TrimSpace(in.ContactEmail))
	in.ContactPhone = trimOptional(in.ContactPhone)
	in.CompanyName = trimOptional(in.CompanyName)
	in.Comments = trimOptional(in.Comments)
	if in.CompanyID != nil && *in.CompanyID <= 0 {
		in.CompanyID = nil
	}
	if in.UserID != nil && *in.UserID <= 0 {
		in.UserID = nil
	}
	return in
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// validateRegisterInput 先檢查必填欄位，全部齊全才檢查 email 格式
func validateRegisterInput(in model.RegisterInput) *apperrors.ValidationError {
	if err := validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return &apperrors.ValidationError{}
		}
		missing := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			missing = append(missing, fe.Field())
		}
		return &apperrors.ValidationError{MissingFields: missing}
	}

	if err := validate.Var(in.ContactEmail, "email"); err != nil {
		return &apperrors.ValidationError{InvalidEmail: true}
	}
	return nil
}

func validateCreateEventParams(params model.CreateEventParams) error {
	if err := validate.Struct(params); err != nil {
		return errors.Join(apperrors.ErrInvalidInput, err)
	}
	return nil
}
