package storage

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"mindnoscape/editor/internal/model"
)

// Export is the on-disk form of a mind map.
type Export struct {
	Mindmap model.Mindmap
	Root    *model.Node
}

type jsonExport struct {
	Mindmap model.Mindmap   `json:"mindmap"`
	Root    json.RawMessage `json:"root"`
}

type xmlExport struct {
	XMLName xml.Name      `xml:"mindmap"`
	Info    model.Mindmap `xml:"info"`
	Root    xmlNode       `xml:"node"`
}

type xmlNode struct {
	ID                   string    `xml:"id,attr"`
	Kind                 string    `xml:"kind,attr"`
	X                    float64   `xml:"x,attr"`
	Y                    float64   `xml:"y,attr"`
	InitialX             float64   `xml:"initialX,attr"`
	InitialY             float64   `xml:"initialY,attr"`
	Width                float64   `xml:"width,attr"`
	Height               float64   `xml:"height,attr"`
	FontSize             float64   `xml:"fontSize,attr"`
	BackgroundColor      string    `xml:"backgroundColor,attr"`
	BorderColor          string    `xml:"borderColor,attr"`
	BorderWidth          float64   `xml:"borderWidth,attr"`
	Collapsed            bool      `xml:"collapsed,attr"`
	HasGeneratedChildren bool      `xml:"hasGeneratedChildren,attr"`
	CreatedAt            int64     `xml:"createdAt,attr"`
	LastModified         int64     `xml:"lastModified,attr"`
	Text                 string    `xml:"text"`
	Description          string    `xml:"description,omitempty"`
	Source               string    `xml:"source,omitempty"`
	Children             []xmlNode `xml:"node"`
}

func toXMLNode(n *model.Node) xmlNode {
	x := xmlNode{
		ID:                   n.ID,
		Kind:                 n.Kind.String(),
		X:                    n.X,
		Y:                    n.Y,
		InitialX:             n.InitialX,
		InitialY:             n.InitialY,
		Width:                n.Width,
		Height:               n.Height,
		FontSize:             n.FontSize,
		BackgroundColor:      n.BackgroundColor,
		BorderColor:          n.BorderColor,
		BorderWidth:          n.BorderWidth,
		Collapsed:            n.Collapsed,
		HasGeneratedChildren: n.HasGeneratedChildren,
		CreatedAt:            n.CreatedAt.UnixMilli(),
		LastModified:         n.LastModified.UnixMilli(),
		Text:                 n.Text,
		Description:          n.Description,
		Source:               n.Source,
	}
	for _, c := range n.Children {
		x.Children = append(x.Children, toXMLNode(c))
	}
	return x
}

// record turns the XML form back into the generic record shape so both
// formats share the same decoding and validation.
func (x xmlNode) record() map[string]any {
	children := make([]any, len(x.Children))
	for i, c := range x.Children {
		children[i] = c.record()
	}
	return map[string]any{
		"id":                   x.ID,
		"text":                 x.Text,
		"kind":                 x.Kind,
		"description":          x.Description,
		"source":               x.Source,
		"x":                    x.X,
		"y":                    x.Y,
		"initialX":             x.InitialX,
		"initialY":             x.InitialY,
		"width":                x.Width,
		"height":               x.Height,
		"fontSize":             x.FontSize,
		"backgroundColor":      x.BackgroundColor,
		"borderColor":          x.BorderColor,
		"borderWidth":          x.BorderWidth,
		"collapsed":            x.Collapsed,
		"hasGeneratedChildren": x.HasGeneratedChildren,
		"createdAt":            float64(x.CreatedAt),
		"lastModified":         float64(x.LastModified),
		"children":             children,
	}
}

// FormatFromPath derives "json" or "xml" from a file extension.
func FormatFromPath(filename string) (string, error) {
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".json":
		return "json", nil
	case ".xml":
		return "xml", nil
	default:
		return "", fmt.Errorf("unsupported file extension %q", ext)
	}
}

// FileExport exports a mindmap to a file in the specified format (JSON or XML).
func FileExport(export Export, filename string, format string) error {
	if export.Root == nil {
		return fmt.Errorf("nothing to export")
	}
	var data []byte
	var err error
	switch format {
	case "json":
		var root []byte
		root, err = json.Marshal(model.ToRecord(export.Root))
		if err == nil {
			data, err = json.MarshalIndent(jsonExport{Mindmap: export.Mindmap, Root: root}, "", "  ")
		}
	case "xml":
		data, err = xml.MarshalIndent(xmlExport{Info: export.Mindmap, Root: toXMLNode(export.Root)}, "", "  ")
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal mindmap: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// FileImport imports a mindmap from a file in the specified format (JSON or XML).
func FileImport(filename string, format string, factory *model.Factory) (Export, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return Export{}, fmt.Errorf("failed to read file: %w", err)
	}

	var out Export
	switch format {
	case "json":
		var in jsonExport
		if err := json.Unmarshal(data, &in); err != nil {
			return Export{}, fmt.Errorf("failed to unmarshal data: %w", err)
		}
		out.Mindmap = in.Mindmap
		out.Root, err = factory.FromJSON(in.Root)
	case "xml":
		var in xmlExport
		if err := xml.Unmarshal(data, &in); err != nil {
			return Export{}, fmt.Errorf("failed to unmarshal data: %w", err)
		}
		out.Mindmap = in.Info
		out.Root, err = factory.FromRecord(in.Root.record())
	default:
		return Export{}, fmt.Errorf("unsupported format: %s", format)
	}
	if err != nil {
		return Export{}, fmt.Errorf("invalid mindmap in %s: %w", filepath.Base(filename), err)
	}
	return out, nil
}
