package blob

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/studystream/study-stream/internal/testutil"
	"github.com/stretchr/testify/assert"
)

func TestDiskStorePut(t *testing.T) {
	dir := t.TempDir()
	store, err := NewDiskStore(testutil.TestLogger(t), dir, "http://localhost:8000/")
	assert.NoError(t, err)

	url, err := store.Put(context.Background(), "f.png", "image/png", strings.NewReader("png-bytes"))
	assert.NoError(t, err)
	assert.Equal(t, "http://localhost:8000/uploads/f.png", url)

	content, err := os.ReadFile(filepath.Join(dir, "f.png"))
	assert.NoError(t, err)
	assert.Equal(t, "png-bytes", string(content))

	// names are unique, a second write to the same name fails
	_, err = store.Put(context.Background(), "f.png", "image/png", strings.NewReader("other"))
	assert.Error(t, err)
}

func TestDiskStorePut_ignoresPathTraversal(t *testing.T) {
	dir := t.TempDir()
	store, err := NewDiskStore(testutil.TestLogger(t), dir, "http://localhost:8000")
	assert.NoError(t, err)

	url, err := store.Put(context.Background(), "../../evil.sh", "image/png", strings.NewReader("x"))
	assert.NoError(t, err)
	assert.Equal(t, "http://localhost:8000/uploads/evil.sh", url)

	_, err = os.Stat(filepath.Join(dir, "evil.sh"))
	assert.NoError(t, err)
}

func TestAllowedType(t *testing.T) {
	assert.True(t, AllowedType("image/png"))
	assert.True(t, AllowedType("application/pdf"))
	assert.False(t, AllowedType("text/x-shellscript"))
	assert.False(t, AllowedType(""))
}

func TestObjectName(t *testing.T) {
	name := ObjectName("photo.PNG")
	assert.True(t, strings.HasSuffix(name, ".PNG"))
	assert.NotEqual(t, ObjectName("photo.PNG"), name, "names are unique per call")

	assert.NotContains(t, ObjectName("../../../etc/passwd"), "/")
}
