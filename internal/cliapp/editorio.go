package cliapp

import (
	"fmt"
	"os"
	"os/exec"
)

// editBuffer stands in for the editor.edit collaborator named in
// spec.md §6: write initial content to a temp file, block on $EDITOR
// (default "vi"), then read back whatever the user saved. It takes no
// help banner and writes nothing to the file besides initial.
func editBuffer(initial string) (string, error) {
	f, err := os.CreateTemp("", "rbw-edit-*.txt")
	if err != nil {
		return "", fmt.Errorf("create edit buffer: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)

	if _, err := f.WriteString(initial); err != nil {
		f.Close()
		return "", fmt.Errorf("write edit buffer: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close edit buffer: %w", err)
	}

	editorBin := os.Getenv("EDITOR")
	if editorBin == "" {
		editorBin = "vi"
	}

	cmd := exec.Command(editorBin, path)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("run editor: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read edit buffer: %w", err)
	}
	return string(data), nil
}
