package hashutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSumText(t *testing.T) {
	assert.Equal(t,
		"2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824",
		SumText("hello"),
	)
}

func TestSumIsDeterministic(t *testing.T) {
	data := []byte("the quick brown fox")
	assert.Equal(t, Sum(data), Sum(data))
}

func TestSumDiffersOnContent(t *testing.T) {
	assert.NotEqual(t, SumText("a"), SumText("b"))
}
