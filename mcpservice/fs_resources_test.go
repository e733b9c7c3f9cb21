package mcpservice

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/toolgate/mcp-server-go/mcp"
)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"readme.md":        {Data: []byte("# readme")},
		"docs/guide.txt":   {Data: []byte("guide text")},
		"assets/logo.bin":  {Data: []byte{0xff, 0xfe, 0x00, 0x01}},
		"docs/sub/deep.md": {Data: []byte("deep")},
	}
}

func TestSyncRegistersTree(t *testing.T) {
	rm := NewResourceManager()
	fsr := NewFSResources(rm, WithFS(testFS()), WithBaseURI("fs://ws"))

	if err := fsr.Sync(context.Background()); err != nil {
		t.Fatalf("sync: %v", err)
	}

	list := rm.ListResources()
	if len(list) != 4 {
		t.Fatalf("want 4 resources, got %d: %+v", len(list), list)
	}
	// URI-ordered listing with escaped path segments under the base URI.
	if list[0].URI != "fs://ws/assets/logo.bin" {
		t.Fatalf("first URI: %s", list[0].URI)
	}

	contents, err := rm.ReadResource(context.Background(), "fs://ws/docs/guide.txt")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(contents) != 1 || contents[0].Text != "guide text" {
		t.Fatalf("contents: %+v", contents)
	}
	if contents[0].MimeType != "text/plain; charset=utf-8" {
		t.Fatalf("mime: %s", contents[0].MimeType)
	}
}

func TestReadBinaryAsBlob(t *testing.T) {
	rm := NewResourceManager()
	fsr := NewFSResources(rm, WithFS(testFS()), WithBaseURI("fs://ws"))
	if err := fsr.Sync(context.Background()); err != nil {
		t.Fatalf("sync: %v", err)
	}

	contents, err := rm.ReadResource(context.Background(), "fs://ws/assets/logo.bin")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := base64.StdEncoding.EncodeToString([]byte{0xff, 0xfe, 0x00, 0x01})
	if contents[0].Blob != want {
		t.Fatalf("blob: %q", contents[0].Blob)
	}
	if contents[0].Text != "" {
		t.Fatalf("binary must not be returned as text")
	}
}

func TestReadRejectsTraversal(t *testing.T) {
	rm := NewResourceManager()
	fsr := NewFSResources(rm, WithFS(testFS()), WithBaseURI("fs://ws"))
	if err := fsr.Sync(context.Background()); err != nil {
		t.Fatalf("sync: %v", err)
	}

	for _, uri := range []string{
		"fs://ws/../etc/passwd",
		"fs://ws/docs/%2e%2e/%2e%2e/etc/passwd",
		"other://ws/readme.md",
	} {
		if _, err := fsr.read(context.Background(), uri); !errors.Is(err, ErrNotFound) {
			t.Fatalf("%s: want ErrNotFound, got %v", uri, err)
		}
	}
}

func TestSyncRemovesVanishedFiles(t *testing.T) {
	rm := NewResourceManager()
	mapfs := testFS()
	fsr := NewFSResources(rm, WithFS(mapfs), WithBaseURI("fs://ws"))
	if err := fsr.Sync(context.Background()); err != nil {
		t.Fatalf("sync: %v", err)
	}

	delete(mapfs, "readme.md")
	if err := fsr.Sync(context.Background()); err != nil {
		t.Fatalf("resync: %v", err)
	}

	if _, err := rm.ReadResource(context.Background(), "fs://ws/readme.md"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("vanished file still readable: %v", err)
	}
	if len(rm.ListResources()) != 3 {
		t.Fatalf("want 3 resources after removal, got %d", len(rm.ListResources()))
	}
}

func TestSyncLeavesForeignResourcesAlone(t *testing.T) {
	rm := NewResourceManager()
	rm.AddResource(mcp.Resource{URI: "memo://keep"}, nil)

	fsr := NewFSResources(rm, WithFS(testFS()), WithBaseURI("fs://ws"))
	if err := fsr.Sync(context.Background()); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if _, err := rm.ReadResource(context.Background(), "memo://keep"); err != nil {
		t.Fatalf("foreign resource dropped by sync: %v", err)
	}
}
