package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"

	"github.com/odvcencio/rejar/pkg/classfile"
)

const tinySample = "v1\tofficial\tnamed\n" +
	"CLASS\told/Main\tnew/Main\n" +
	"METHOD\told/Main\t()V\trun\tlaunch\n"

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func writeInputJar(t *testing.T, path string) {
	t.Helper()
	p := classfile.NewPool()
	f := &classfile.File{Major: 52, Pool: p, Access: 0x0021}
	var err error
	if f.ThisClass, err = p.AddClass("old/Main"); err != nil {
		t.Fatalf("AddClass: %v", err)
	}
	if f.SuperClass, err = p.AddClass("java/lang/Object"); err != nil {
		t.Fatalf("AddClass: %v", err)
	}
	name, _ := p.AddUtf8("run")
	desc, _ := p.AddUtf8("()V")
	f.Methods = append(f.Methods, classfile.Member{Access: 0x0001, Name: name, Desc: desc})
	data, err := f.Write()
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	out, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	zw := zip.NewWriter(out)
	w, err := zw.Create("old/Main.class")
	if err != nil {
		t.Fatalf("create entry: %v", err)
	}
	if _, err := w.Write(data); err != nil {
		t.Fatalf("write entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close jar: %v", err)
	}
	if err := out.Close(); err != nil {
		t.Fatalf("close file: %v", err)
	}
}

func outputClassNames(t *testing.T, path string) []string {
	t.Helper()
	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer zr.Close()
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	return names
}

func TestRemapCommand(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "in.jar")
	output := filepath.Join(dir, "out.jar")
	writeInputJar(t, input)
	mappings := writeFile(t, filepath.Join(dir, "mappings.tiny"), tinySample)

	cmd := newRemapCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{
		"-i", input, "-o", output, "-m", mappings,
		"--from", "official", "--to", "named", "-v",
	})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	names := outputClassNames(t, output)
	if len(names) != 1 || names[0] != "new/Main.class" {
		t.Fatalf("output entries = %v, want [new/Main.class]", names)
	}
	out := buf.String()
	if !strings.Contains(out, "old/Main -> new/Main") {
		t.Fatalf("verbose rename line missing from output:\n%s", out)
	}
	if !strings.Contains(out, "remapped 1 classes") {
		t.Fatalf("summary line missing from output:\n%s", out)
	}
}

func TestRemapCommandConfigFile(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "in.jar")
	output := filepath.Join(dir, "out.jar")
	writeInputJar(t, input)
	mappings := writeFile(t, filepath.Join(dir, "mappings.tiny"), tinySample)
	config := writeFile(t, filepath.Join(dir, "rejar.toml"),
		"input = "+quote(input)+"\n"+
			"output = "+quote(output)+"\n"+
			"mappings = "+quote(mappings)+"\n"+
			"from = \"official\"\n"+
			"to = \"named\"\n")

	cmd := newRemapCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetArgs([]string{"--config", config})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if names := outputClassNames(t, output); len(names) != 1 || names[0] != "new/Main.class" {
		t.Fatalf("output entries = %v, want [new/Main.class]", names)
	}
}

func quote(s string) string {
	return "'" + s + "'"
}

func TestRemapCommandRequiresFlags(t *testing.T) {
	cmd := newRemapCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{})
	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "--input is required") {
		t.Fatalf("err = %v, want missing --input", err)
	}
}

func TestMappingsCommand(t *testing.T) {
	dir := t.TempDir()
	mappings := writeFile(t, filepath.Join(dir, "mappings.tiny"), tinySample)

	cmd := newMappingsCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"-m", mappings})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"official, named", "classes:    1", "methods:    1"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestReadConfigRejectsUnknownKeys(t *testing.T) {
	dir := t.TempDir()
	config := writeFile(t, filepath.Join(dir, "rejar.toml"), "bogus = 1\n")
	if _, err := readConfig(config); err == nil || !strings.Contains(err.Error(), "unknown key") {
		t.Fatalf("err = %v, want unknown key error", err)
	}
}
