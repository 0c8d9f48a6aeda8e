package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func withBuild(t *testing.T, v, c, d string) {
	t.Helper()
	prevV, prevC, prevD := version, commit, date
	version, commit, date = v, c, d
	t.Cleanup(func() { version, commit, date = prevV, prevC, prevD })
}

func TestDefaults(t *testing.T) {
	v, c, d := Info()
	assert.Equal(t, "dev", v)
	assert.Equal(t, "unknown", c)
	assert.Equal(t, "unknown", d)
	assert.Equal(t, "dev", Short())
}

func TestString(t *testing.T) {
	withBuild(t, "v1.4.0", "3f2a9c1d0e", "2026-05-01")
	assert.Equal(t, "version=v1.4.0 commit=3f2a9c1d0e date=2026-05-01", String())
}

func TestShort(t *testing.T) {
	withBuild(t, "v1.4.0", "3f2a9c1d0e", "2026-05-01")
	assert.Equal(t, "v1.4.0+3f2a9c1", Short())

	withBuild(t, "v1.4.0", "abc", "")
	assert.Equal(t, "v1.4.0+abc", Short())

	withBuild(t, "v1.4.0", "", "")
	assert.Equal(t, "v1.4.0", Short())
}
