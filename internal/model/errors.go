package model

import "errors"

// Таксономия ошибок ядра бронирования и напоминаний
var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrInvalidState     = errors.New("invalid state")
	ErrMismatch         = errors.New("mismatch")
	ErrInvalidInput     = errors.New("invalid input")
	ErrUnknownAgeSymbol = errors.New("unknown age symbol")
	ErrTransientIO      = errors.New("transient io")
)

// TransientError ошибка хранилища или транспорта уведомлений, которую можно повторить
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

// Unwrap позволяет errors.Is находить и ErrTransientIO, и исходную ошибку
func (e *TransientError) Unwrap() []error {
	return []error{ErrTransientIO, e.Err}
}

// Transient оборачивает ошибку ввода-вывода. nil остаётся nil.
func Transient(op string, err error) error {
	if err == nil {
		return nil
	}
	var te *TransientError
	if errors.As(err, &te) {
		return err
	}
	return &TransientError{Op: op, Err: err}
}

// ErrorMessage возвращает пользовательское сообщение для ошибки
func ErrorMessage(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "The slot or vaccine request no longer exists."
	case errors.Is(err, ErrConflict):
		return "This slot has already been taken. Please pick another one."
	case errors.Is(err, ErrInvalidState):
		return "This vaccine request can no longer be changed."
	case errors.Is(err, ErrMismatch):
		return "The selected slot is not on the requested vaccination day."
	case errors.Is(err, ErrInvalidInput):
		return "Some of the provided details are invalid."
	case errors.Is(err, ErrUnknownAgeSymbol):
		return "The vaccine has an unsupported age requirement."
	case errors.Is(err, ErrTransientIO):
		return "Temporary problem, please try again later."
	default:
		return "Something went wrong."
	}
}
