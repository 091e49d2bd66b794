// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package kar_test

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"testing/iotest"
	"time"

	"github.com/cockroachdb/errors"
	qt "github.com/frankban/quicktest"

	"github.com/devblok/vkscene/utility/kar"
)

var (
	testString1 = "idunvovkjnreovmegihjbrqlkmfrjnb"
	testString2 = "idunvovkjnreovmsdvwrvnervnreegihjbrqlkmfrjnb"
)

func newBuilder(c *qt.C) *kar.Builder {
	builder, err := kar.NewBuilder(kar.Header{
		Author:      "devblok",
		DateCreated: time.Now().Unix(),
		Version:     1,
	})
	c.Assert(err, qt.IsNil)
	c.Cleanup(func() { builder.Close() })
	return builder
}

func buildArchive(c *qt.C, files map[string]string, order ...string) []byte {
	builder := newBuilder(c)
	for _, name := range order {
		c.Assert(builder.Add(name, strings.NewReader(files[name])), qt.IsNil)
	}
	var buf bytes.Buffer
	written, err := builder.WriteTo(&buf)
	c.Assert(err, qt.IsNil)
	c.Assert(written, qt.Equals, int64(buf.Len()))
	return buf.Bytes()
}

func TestCreateAndRead(t *testing.T) {
	c := qt.New(t)
	data := buildArchive(c, map[string]string{"test": testString1, "test2": testString2}, "test", "test2")

	ar, err := kar.Open(bytes.NewReader(data))
	c.Assert(err, qt.IsNil)
	c.Assert(ar.Files(), qt.DeepEquals, []string{"test", "test2"})
	c.Assert(ar.Header().Author, qt.Equals, "devblok")

	f, err := ar.Open("test2")
	c.Assert(err, qt.IsNil)
	c.Assert(f.Size(), qt.Equals, int64(len(testString2)))
	result, err := io.ReadAll(f)
	c.Assert(err, qt.IsNil)
	c.Assert(string(result), qt.Equals, testString2)
}

func TestCreateAndReadAll(t *testing.T) {
	c := qt.New(t)
	large := strings.Repeat(testString2, 4096)
	data := buildArchive(c, map[string]string{"test": testString1, "large": large, "empty": ""}, "test", "large", "empty")

	ar, err := kar.Open(bytes.NewReader(data))
	c.Assert(err, qt.IsNil)

	for name, expected := range map[string]string{"test": testString1, "large": large, "empty": ""} {
		contents, err := ar.ReadAll(name)
		c.Assert(err, qt.IsNil)
		c.Assert(string(contents), qt.Equals, expected, qt.Commentf("%s", name))
	}
}

func TestOpenMissingFile(t *testing.T) {
	c := qt.New(t)
	data := buildArchive(c, map[string]string{"test": testString1}, "test")
	ar, err := kar.Open(bytes.NewReader(data))
	c.Assert(err, qt.IsNil)

	_, err = ar.Open("nope")
	c.Assert(errors.Is(err, kar.ErrNotFound), qt.IsTrue)
	_, err = ar.ReadAll("nope")
	c.Assert(errors.Is(err, kar.ErrNotFound), qt.IsTrue)
}

func TestAddDuplicate(t *testing.T) {
	c := qt.New(t)
	builder := newBuilder(c)
	c.Assert(builder.Add("test", strings.NewReader(testString1)), qt.IsNil)
	err := builder.Add("test", strings.NewReader(testString2))
	c.Assert(errors.Is(err, kar.ErrDuplicate), qt.IsTrue)
}

func TestAddRetryAfterFailedRead(t *testing.T) {
	c := qt.New(t)
	builder := newBuilder(c)

	err := builder.Add("test", iotest.ErrReader(errors.New("disk on fire")))
	c.Assert(err, qt.ErrorMatches, `compress "test": disk on fire`)
	c.Assert(errors.Is(err, kar.ErrDuplicate), qt.IsFalse)

	c.Assert(builder.Add("test", strings.NewReader(testString1)), qt.IsNil)

	var buf bytes.Buffer
	_, err = builder.WriteTo(&buf)
	c.Assert(err, qt.IsNil)
	ar, err := kar.Open(bytes.NewReader(buf.Bytes()))
	c.Assert(err, qt.IsNil)
	c.Assert(ar.Files(), qt.DeepEquals, []string{"test"})
	contents, err := ar.ReadAll("test")
	c.Assert(err, qt.IsNil)
	c.Assert(string(contents), qt.Equals, testString1)
}

func TestAddConcurrently(t *testing.T) {
	c := qt.New(t)
	builder := newBuilder(c)

	names := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	var wg sync.WaitGroup
	for _, name := range names {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			c.Check(builder.Add(name, strings.NewReader(name+testString1)), qt.IsNil)
		}(name)
	}
	wg.Wait()

	var buf bytes.Buffer
	_, err := builder.WriteTo(&buf)
	c.Assert(err, qt.IsNil)

	ar, err := kar.Open(bytes.NewReader(buf.Bytes()))
	c.Assert(err, qt.IsNil)
	c.Assert(ar.Files(), qt.HasLen, len(names))

	// Readers are independent
	for _, name := range names {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			contents, err := ar.ReadAll(name)
			c.Check(err, qt.IsNil)
			c.Check(string(contents), qt.Equals, name+testString1)
		}(name)
	}
	wg.Wait()
}

func TestOpenRejectsGarbage(t *testing.T) {
	c := qt.New(t)
	valid := buildArchive(c, map[string]string{"test": testString1}, "test")

	truncatedHeader := append([]byte{}, valid[:kar.MagicLength+kar.HeaderSizeNumberLength+4]...)
	hugeHeader := append([]byte{}, valid...)
	copy(hugeHeader[kar.MagicLength:], []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x7f})

	for name, data := range map[string][]byte{
		"empty":            nil,
		"short":            []byte("KAR"),
		"wrong magic":      append([]byte("TAR\x00"), valid[kar.MagicLength:]...),
		"truncated header": truncatedHeader,
		"huge header":      hugeHeader,
		"text":             []byte(strings.Repeat("not an archive ", 10)),
	} {
		_, err := kar.Open(bytes.NewReader(data))
		c.Assert(errors.Is(err, kar.ErrFileFormat), qt.IsTrue, qt.Commentf("%s: %v", name, err))
	}
}

func TestOpenFileMapped(t *testing.T) {
	c := qt.New(t)
	data := buildArchive(c, map[string]string{"shaders/vert.spv": testString1, "textures/tex.png": testString2},
		"shaders/vert.spv", "textures/tex.png")
	path := filepath.Join(c.TempDir(), "assets.kar")
	c.Assert(os.WriteFile(path, data, 0o644), qt.IsNil)

	f, err := kar.OpenFile(path)
	c.Assert(err, qt.IsNil)
	defer f.Close()

	contents, err := f.ReadAll("textures/tex.png")
	c.Assert(err, qt.IsNil)
	c.Assert(string(contents), qt.Equals, testString2)

	_, err = kar.OpenFile(filepath.Join(c.TempDir(), "missing.kar"))
	c.Assert(err, qt.ErrorMatches, `mmap.Open\(.*\): .*`)
}
