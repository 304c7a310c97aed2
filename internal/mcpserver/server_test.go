package mcpserver

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/ansuz/internal/testutil"
)

func testServer(t *testing.T) (*Server, string) {
	t.Helper()

	store := testutil.NewStore(t)
	return New(store), store.Folder()
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so the tool handler
	// functions are invoked directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "list_notes":
		result, err = srv.listNotes(ctx, req)
	case "read_note":
		result, err = srv.readNote(ctx, req)
	case "edit_note":
		result, err = srv.editNote(ctx, req)
	case "save_note":
		result, err = srv.saveNote(ctx, req)
	case "create_note":
		result, err = srv.createNote(ctx, req)
	case "delete_note":
		result, err = srv.deleteNote(ctx, req)
	case "rename_note":
		result, err = srv.renameNote(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestCreateAndReadNote(t *testing.T) {
	srv, folder := testServer(t)

	r := callTool(t, srv, "create_note", map[string]interface{}{"name": "test.txt"})
	if text := resultText(r); text != "created: test.txt" {
		t.Errorf("create result = %q", text)
	}

	if err := os.WriteFile(filepath.Join(folder, "test.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	r = callTool(t, srv, "read_note", map[string]interface{}{"name": "test.txt"})
	if text := resultText(r); text != "hello" {
		t.Errorf("read result = %q", text)
	}
}

func TestEditThenReadPrefersDraft(t *testing.T) {
	srv, folder := testServer(t)
	if err := os.WriteFile(filepath.Join(folder, "a.txt"), []byte("saved"), 0o644); err != nil {
		t.Fatal(err)
	}

	_ = callTool(t, srv, "edit_note", map[string]interface{}{"name": "a.txt", "content": "draft"})

	r := callTool(t, srv, "read_note", map[string]interface{}{"name": "a.txt"})
	if text := resultText(r); text != "draft" {
		t.Errorf("read result = %q, want draft", text)
	}

	r = callTool(t, srv, "list_notes", map[string]interface{}{})
	if text := resultText(r); !strings.Contains(text, `"dirty": true`) {
		t.Errorf("list result missing dirty flag: %q", text)
	}
}

func TestSaveClearsDraft(t *testing.T) {
	srv, folder := testServer(t)
	if err := os.WriteFile(filepath.Join(folder, "a.txt"), []byte("saved"), 0o644); err != nil {
		t.Fatal(err)
	}
	_ = callTool(t, srv, "edit_note", map[string]interface{}{"name": "a.txt", "content": "draft"})
	_ = callTool(t, srv, "save_note", map[string]interface{}{"name": "a.txt", "content": "draft"})

	data, _ := os.ReadFile(filepath.Join(folder, "a.txt"))
	if string(data) != "draft" {
		t.Errorf("disk content = %q, want draft", data)
	}
	r := callTool(t, srv, "list_notes", map[string]interface{}{})
	if text := resultText(r); strings.Contains(text, `"dirty": true`) {
		t.Errorf("note still dirty after save: %q", text)
	}
}

func TestReadNoteMissing(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "read_note", map[string]interface{}{"name": "nope.txt"})
	if !r.IsError {
		t.Error("expected error for missing note")
	}
}

func TestRenameNote(t *testing.T) {
	srv, folder := testServer(t)
	if err := os.WriteFile(filepath.Join(folder, "old.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	r := callTool(t, srv, "rename_note", map[string]interface{}{"name": "old.txt", "new_name": "new.txt"})
	if text := resultText(r); text != "renamed: old.txt -> new.txt" {
		t.Errorf("rename result = %q", text)
	}
	r = callTool(t, srv, "read_note", map[string]interface{}{"name": "new.txt"})
	if text := resultText(r); text != "x" {
		t.Errorf("read after rename = %q", text)
	}
}

func TestDeleteNote(t *testing.T) {
	srv, folder := testServer(t)
	if err := os.WriteFile(filepath.Join(folder, "doomed.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	_ = callTool(t, srv, "delete_note", map[string]interface{}{"name": "doomed.txt"})

	r := callTool(t, srv, "read_note", map[string]interface{}{"name": "doomed.txt"})
	if !r.IsError {
		t.Error("expected error reading deleted note")
	}
}

func TestCreateInvalidName(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "create_note", map[string]interface{}{"name": "Bad/Name.txt"})
	if !r.IsError {
		t.Error("expected error for invalid name")
	}
}
