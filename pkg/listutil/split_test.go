package listutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplit(t *testing.T) {
	assert.Equal(t, []string{"jquery-core", "contact-form-7"}, Split("jquery-core, contact-form-7"))
	assert.Equal(t, []string{"a", "b", "c"}, Split("a\r\nb,,\n c ,"))
	assert.Nil(t, Split("   "))
	assert.Nil(t, Split(""))
}
