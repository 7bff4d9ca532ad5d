package version_test

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shpitdev/pdl-enricher/internal/version"
)

func TestCurrent(t *testing.T) {
	assert.Regexp(t, regexp.MustCompile(`^[0-9]+\.[0-9]+\.[0-9]+$`), version.Current,
		"Current must be <major>.<minor>.<patch> without a v prefix")
}
