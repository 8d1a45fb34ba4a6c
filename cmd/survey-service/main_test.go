package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDefinition = `type: course
title: Course feedback
sections:
  - title: About you
    type: questions
    questions:
      - id: name
        type: text
        question: Your name
      - id: q_confidence
        type: scale-grid
        question: How confident are you with these?
        prompts: [Go, SQL]
        scaleLabels: [Low, High]
`

func TestAutomapCommand(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "course.yaml"), []byte(testDefinition), 0o644))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"automap", "--surveys", dir, "--type", "course", "Your name", "E-mail", "Shoe size"})
	require.NoError(t, rootCmd.Execute())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "MAPS TO")
	assert.Contains(t, lines[1], "name")
	assert.Contains(t, lines[1], "1.00")
	assert.Contains(t, lines[2], "email")
	assert.Contains(t, lines[3], "unmapped")
}

func TestParseDateFlag(t *testing.T) {
	d, err := parseDateFlag("from", "")
	require.NoError(t, err)
	assert.Nil(t, d)

	d, err = parseDateFlag("from", "2026-03-04")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC), *d)

	_, err = parseDateFlag("to", "04.03.2026")
	assert.ErrorContains(t, err, "--to")
}
