package util

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
)

// ErrInvalid é a raiz de todo erro de validação de entrada. Handlers usam
// errors.Is para traduzir em resposta 400.
var ErrInvalid = errors.New("entrada inválida")

// ValidateEmail retorna erro para e-mails inválidos.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("%w: email obrigatório", ErrInvalid)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("%w: email inválido", ErrInvalid)
	}
	return nil
}

// ValidatePassword verifica requisitos mínimos de senha.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("%w: senha deve ter pelo menos 8 caracteres", ErrInvalid)
	}
	return nil
}

// RequireString garante string não vazia.
func RequireString(value, field string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: %s obrigatório", ErrInvalid, field)
	}
	return nil
}
