package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCodeExtraction(t *testing.T) {
	require.Equal(t, ErrOutOfStock, Code(New(ErrOutOfStock, "no copies")))
	require.Equal(t, ErrCode(""), Code(errors.New("plain")))
	require.Equal(t, ErrCode(""), Code(nil))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(ErrPaymentGateway, "payment processor unavailable", cause)

	require.Equal(t, ErrPaymentGateway, Code(err))
	require.ErrorIs(t, err, cause)
	require.Equal(t, "payment processor unavailable", err.Error())
}

func TestCodeSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("creating borrowing: %w", New(ErrDuplicateActiveBorrowing, "already borrowed"))
	require.True(t, Is(err, ErrDuplicateActiveBorrowing))
}
