package task

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core"
)

var (
	taskStatusTag  = "taskstatus"
	taskStatusText = "invalid status"

	taskPriorityTag  = "taskpriority"
	taskPriorityText = "invalid priority"
)

// InitValidators registers the task package's custom validators and translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(taskStatusTag, taskStatusValidation)
	core.RegisterCustomTranslation(validate, translator, taskStatusTag, taskStatusText)

	_ = validate.RegisterValidation(taskPriorityTag, taskPriorityValidation)
	core.RegisterCustomTranslation(validate, translator, taskPriorityTag, taskPriorityText)
}

func taskStatusValidation(fl validator.FieldLevel) bool {
	return isOneOf(fl.Field().String(), AllStatuses)
}

func taskPriorityValidation(fl validator.FieldLevel) bool {
	return isOneOf(fl.Field().String(), AllPriorities)
}

func isOneOf(val string, all []string) bool {
	for _, s := range all {
		if val == s {
			return true
		}
	}
	return false
}
