package render

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
)

// Artifact is a generated report file on disk.
type Artifact struct {
	Filename string
	Path     string
	Engine   string
}

// Engine turns report HTML into downloadable files via an external
// wkhtmltopdf-compatible converter. When the converter is missing or
// produces a broken file, the raw HTML is saved instead so the user
// still gets a document.
type Engine struct {
	bin        string
	reportsDir string
}

func NewEngine(bin, reportsDir string) *Engine {
	return &Engine{bin: bin, reportsDir: reportsDir}
}

// Available reports whether the converter binary can be invoked.
func (e *Engine) Available() bool {
	_, err := exec.LookPath(e.bin)
	return err == nil
}

// ReportsDir returns the directory artifacts are written to.
func (e *Engine) ReportsDir() string {
	return e.reportsDir
}

// Render converts html into a PDF whose name starts with kind, e.g.
// "property_analysis". On conversion failure it falls back to writing
// the HTML itself and reports which engine produced the artifact.
func (e *Engine) Render(ctx context.Context, kind, html string) (Artifact, error) {
	if err := os.MkdirAll(e.reportsDir, 0o755); err != nil {
		return Artifact{}, fmt.Errorf("create reports dir: %w", err)
	}
	stamp := time.Now().Format("20060102_150405")

	if e.Available() {
		name := fmt.Sprintf("%s_%s.pdf", kind, stamp)
		path := filepath.Join(e.reportsDir, name)
		if err := e.convert(ctx, html, path); err != nil {
			log.Printf("pdf render: conversion failed, saving html instead: %v", err)
			os.Remove(path)
		} else if err := verifyPDF(path); err != nil {
			log.Printf("pdf render: generated file failed verification: %v", err)
			os.Remove(path)
		} else {
			return Artifact{Filename: name, Path: path, Engine: "wkhtmltopdf"}, nil
		}
	}

	name := fmt.Sprintf("%s_%s.html", kind, stamp)
	path := filepath.Join(e.reportsDir, name)
	if err := os.WriteFile(path, []byte(html), 0o644); err != nil {
		return Artifact{}, fmt.Errorf("write html fallback: %w", err)
	}
	return Artifact{Filename: name, Path: path, Engine: "html"}, nil
}

func (e *Engine) convert(ctx context.Context, html, outPath string) error {
	cmd := exec.CommandContext(ctx, e.bin, "--encoding", "utf-8", "--quiet", "-", outPath)
	cmd.Stdin = strings.NewReader(html)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%s: %v: %s", e.bin, err, msg)
		}
		return fmt.Errorf("%s: %w", e.bin, err)
	}
	return nil
}

// verifyPDF opens the converter output and checks it parses as a PDF
// with at least one page.
func verifyPDF(path string) error {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if reader.NumPage() < 1 {
		return fmt.Errorf("pdf has no pages")
	}
	return nil
}
