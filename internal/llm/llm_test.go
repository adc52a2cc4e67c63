package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTextOrApology(t *testing.T) {
	t.Run("empty completion yields apology", func(t *testing.T) {
		assert.Equal(t, Apology, textOrApology(""))
	})

	t.Run("whitespace-only completion yields apology", func(t *testing.T) {
		assert.Equal(t, Apology, textOrApology("   \n\t  "))
	})

	t.Run("real text passes through verbatim", func(t *testing.T) {
		assert.Equal(t, "I'll create main.go now.", textOrApology("I'll create main.go now."))
	})

	t.Run("surrounding whitespace is preserved", func(t *testing.T) {
		assert.Equal(t, "  code\n", textOrApology("  code\n"))
	})
}
