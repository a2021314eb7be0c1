package model

import "time"

// Mindmap holds the metadata of a stored mind map document.
type Mindmap struct {
	ID        string    `json:"id" xml:"id,attr"`
	Name      string    `json:"name" xml:"name,attr"`
	NodeCount int       `json:"node_count" xml:"node_count,attr"`
	Depth     int       `json:"depth" xml:"depth,attr"`
	Created   time.Time `json:"created" xml:"created,attr"`
	Updated   time.Time `json:"updated" xml:"updated,attr"`
}

// MindmapInfo identifies a mind map by id or by name.
type MindmapInfo struct {
	ID   string
	Name string
}

// Command represents a user command with its scope, operation, and arguments
type Command struct {
	Scope     string   `json:"scope"`
	Operation string   `json:"operation"`
	Args      []string `json:"args"`
}
