package payloadschema

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

const (
	ReportCreate     = "report_create.schema.json"
	ReportProcess    = "report_process.schema.json"
	TranslateText    = "translate_text.schema.json"
	TranslateChapter = "translate_chapter.schema.json"
)

type ReportCreateRequest struct {
	TargetType  string  `json:"targetType"`
	TargetID    string  `json:"targetId"`
	Reason      string  `json:"reason"`
	Description *string `json:"description,omitempty"`
}

type ReportProcessRequest struct {
	Status    string  `json:"status"`
	Action    string  `json:"action"`
	AdminNote *string `json:"adminNote,omitempty"`
}

type TranslateTextRequest struct {
	Text       string `json:"text"`
	TargetLang string `json:"targetLang"`
}

type TranslateChapterRequest struct {
	ChapterID  string `json:"chapterId"`
	TargetLang string `json:"targetLang"`
}

var (
	compileMu sync.Mutex
	compiled  = map[string]*jsonschema.Schema{}
)

// Decode validates payload against the named schema, then unmarshals it into out.
func Decode(name string, payload []byte, out any) error {
	value, err := decodeStrictJSON(payload)
	if err != nil {
		return fmt.Errorf("decode payload JSON: %w", err)
	}

	schema, err := loadSchema(name)
	if err != nil {
		return fmt.Errorf("load schema: %w", err)
	}
	if err := schema.Validate(value); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	normalized, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("normalize payload JSON: %w", err)
	}
	if err := json.Unmarshal(normalized, out); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	return nil
}

func DecodeReportCreate(payload []byte) (*ReportCreateRequest, error) {
	var req ReportCreateRequest
	if err := Decode(ReportCreate, payload, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

func DecodeReportProcess(payload []byte) (*ReportProcessRequest, error) {
	var req ReportProcessRequest
	if err := Decode(ReportProcess, payload, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

func DecodeTranslateText(payload []byte) (*TranslateTextRequest, error) {
	var req TranslateTextRequest
	if err := Decode(TranslateText, payload, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

func DecodeTranslateChapter(payload []byte) (*TranslateChapterRequest, error) {
	var req TranslateChapterRequest
	if err := Decode(TranslateChapter, payload, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

func loadSchema(name string) (*jsonschema.Schema, error) {
	compileMu.Lock()
	defer compileMu.Unlock()

	if schema, ok := compiled[name]; ok {
		return schema, nil
	}

	raw, err := schemaFS.ReadFile("schemas/" + name)
	if err != nil {
		return nil, fmt.Errorf("unknown schema %q: %w", name, err)
	}

	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	compiler.AssertFormat = true
	if err := compiler.AddResource(name, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	schema, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	compiled[name] = schema
	return schema, nil
}

func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("payload is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("payload contains trailing content")
	}

	return value, nil
}
