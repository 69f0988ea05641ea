package main

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bolton-and-Menk-GIS/configurable-maps-workshop-2023/timeline"
)

func testOptions() *appOptions {
	return &appOptions{configLocation: filepath.Join("testdata", "app.yml"), parallelism: 2}
}

func Test_RunEvents_JSON(t *testing.T) {
	// arrange
	var out bytes.Buffer

	// act
	err := runEvents(context.Background(), testOptions(), formatJSON, &out, io.Discard)

	// assert
	require.NoError(t, err)

	var events []timeline.Event
	require.NoError(t, jsoniter.Unmarshal(out.Bytes(), &events))
	require.Len(t, events, 3)
	assert.Equal(t, "Stone Arch Bridge", events[0].Title)
	assert.Equal(t, "1883-11-22", events[0].FormattedDate)
	require.NotNil(t, events[0].Subtitle)
	assert.Equal(t, "open", *events[0].Subtitle)
	assert.False(t, events[1].HasLocation(), "line strings have no location")
	assert.Equal(t, "Hennepin Avenue Bridge", events[2].Title)
}

func Test_RunEvents_Table(t *testing.T) {
	// arrange
	var out bytes.Buffer

	// act
	err := runEvents(context.Background(), testOptions(), formatTable, &out, io.Discard)

	// assert
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Minneapolis Bridges (3 events)")
	assert.Contains(t, out.String(), "Third Avenue Bridge")
	assert.Contains(t, out.String(), "-93.25330, 44.98070")
}

func Test_RunEvents_When_FormatUnknown_Then_Error(t *testing.T) {
	// act
	err := runEvents(context.Background(), testOptions(), "xml", io.Discard, io.Discard)

	// assert
	assert.ErrorContains(t, err, "unsupported format")
}

func Test_RunValidate(t *testing.T) {
	// arrange
	var out bytes.Buffer

	// act
	err := runValidate(context.Background(), testOptions(), &out)

	// assert
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Minneapolis Bridges: ok")
	assert.Contains(t, out.String(), "EVENT_DATE is not null AND SPAN > 100")
}

func Test_RunBrowse(t *testing.T) {
	// setup
	a, err := openApp(context.Background(), testOptions(), io.Discard)
	require.NoError(t, err)
	defer a.close()

	// arrange
	in := strings.NewReader(strings.Join([]string{"n", "n", "n", "p", "g 1", "g 9", "o 3", "o 42", "f", "l", "bogus", "q", "n"}, "\n"))
	var out bytes.Buffer

	// act
	err = runBrowse(context.Background(), a, in, &out)

	// assert
	require.NoError(t, err)
	output := out.String()
	assert.Contains(t, output, "[1/3] 1883-11-22  Stone Arch Bridge")
	assert.Contains(t, output, "[2/3] 1918-01-01  Third Avenue Bridge")
	assert.Contains(t, output, "[3/3] 1990-09-01  Hennepin Avenue Bridge")
	assert.Contains(t, output, "already at the last event")
	assert.Contains(t, output, "no event 9 (1-3)")
	assert.Contains(t, output, "no event with object id 42")
	assert.Contains(t, output, "[filter: 3 shown]")
	assert.Contains(t, output, `unknown command "bogus"`)
	assert.Equal(t, 1, strings.Count(output, "already at the last event"), "input after q is not read")
}

func Test_RunBrowse_FilterModeShowsPrefix(t *testing.T) {
	// setup
	a, err := openApp(context.Background(), testOptions(), io.Discard)
	require.NoError(t, err)
	defer a.close()

	// arrange
	in := strings.NewReader("n\nf\nl\n")
	var out bytes.Buffer

	// act
	err = runBrowse(context.Background(), a, in, &out)

	// assert
	require.NoError(t, err)
	output := out.String()
	assert.Contains(t, output, "[filter: 2 shown]")
	assert.Contains(t, output, "OBJECT ID")
	assert.NotContains(t, output, "Hennepin Avenue Bridge", "the listing stops at the current event")
}

func Test_RootCmd_RegistersCommands(t *testing.T) {
	// act
	root := rootCmd()

	// assert
	names := make([]string, 0)
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"events", "browse", "validate"})
}
