package conventions_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/slok/execgate/internal/conventions"
)

func TestPaths(t *testing.T) {
	assert.Equal(t, "/home/u/.execgate/execgate.db", conventions.DBPath("/home/u/.execgate"))
	assert.Equal(t, "/home/u/.execgate/blobs", conventions.BlobsPath("/home/u/.execgate"))
}
