package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"mindnoscape/editor/internal/generate"
	"mindnoscape/editor/internal/log"
	"mindnoscape/editor/internal/model"
	"mindnoscape/editor/internal/session"
)

type generateNodesRequest struct {
	NodeText string `json:"nodeText" validate:"required,max=500"`
	NodeKind string `json:"nodeKind" validate:"required,oneof=question answer root pregunta respuesta"`
	Count    *int   `json:"count" validate:"omitempty,min=1,max=8"`
}

type generatedNode struct {
	Text        string `json:"text"`
	Description string `json:"description,omitempty"`
	Source      string `json:"source,omitempty"`
	Kind        string `json:"kind"`
}

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type commandRequest struct {
	Scope     string   `json:"scope" validate:"required"`
	Operation string   `json:"operation" validate:"required"`
	Args      []string `json:"args"`
}

// localOnly commands read or write files on the server's disk.
var localOnly = map[string]bool{
	"mindmap export": true,
	"mindmap import": true,
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"generator": s.generator.Name(),
		"sessions":  s.sessions.SessionCount(),
	})
}

func (s *Server) handleGenerateNodes(c *gin.Context) {
	var req generateNodesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, []fieldError{{Field: "body", Message: "request body must be a JSON object"}})
		return
	}
	req.NodeText = strings.TrimSpace(req.NodeText)
	req.NodeKind = strings.ToLower(req.NodeKind)
	if err := s.validate.Struct(req); err != nil {
		s.badRequest(c, fieldErrors(err))
		return
	}
	kind, _ := model.ParseKind(req.NodeKind)
	count := s.defaultCount
	if req.Count != nil {
		count = *req.Count
	}

	suggestions, err := s.generator.Generate(c.Request.Context(), generate.Request{
		ParentText: req.NodeText,
		ParentKind: kind,
		Count:      count,
	})
	if err != nil {
		s.logger.Error(c.Request.Context(), "Node generation failed", log.Fields{"error": err, "generator": s.generator.Name()})
		c.JSON(http.StatusBadGateway, gin.H{"success": false, "error": "failed to generate nodes"})
		return
	}

	childKind := kind.ChildKind().String()
	nodes := make([]generatedNode, len(suggestions))
	for i, sg := range suggestions {
		nodes[i] = generatedNode{Text: sg.Text, Description: sg.Description, Source: sg.Source, Kind: childKind}
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"nodes":   nodes,
		"metadata": gin.H{
			"provider": s.generator.Name(),
			"count":    len(nodes),
			"kind":     kind.String(),
		},
	})
}

func (s *Server) handleSessionCreate(c *gin.Context) {
	id, err := s.sessions.SessionAdd()
	if err != nil {
		s.logger.Error(c.Request.Context(), "Failed to create session", log.Fields{"error": err})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"sessionId": id})
}

func (s *Server) handleSessionDelete(c *gin.Context) {
	if !s.sessions.SessionDelete(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": session.ErrSessionNotFound.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleSessionCommand(c *gin.Context) {
	var req commandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, []fieldError{{Field: "body", Message: "request body must be a JSON object"}})
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.badRequest(c, fieldErrors(err))
		return
	}

	cmd := model.Command{
		Scope:     strings.ToLower(req.Scope),
		Operation: strings.ToLower(req.Operation),
		Args:      req.Args,
	}
	if localOnly[cmd.Scope+" "+cmd.Operation] {
		s.logger.Warn(c.Request.Context(), "Refused local-only command", log.Fields{"scope": cmd.Scope, "operation": cmd.Operation})
		c.JSON(http.StatusForbidden, gin.H{"error": fmt.Sprintf("%s %s is not available over HTTP", cmd.Scope, cmd.Operation)})
		return
	}

	result, err := s.sessions.SessionRun(c.Request.Context(), c.Param("id"), cmd)
	if err != nil {
		c.JSON(statusOf(err), gin.H{"error": err.Error()})
		return
	}
	if node, ok := result.(*model.Node); ok {
		c.JSON(http.StatusOK, gin.H{"result": model.ToRecord(node)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": result})
}

func (s *Server) handleSessionTree(c *gin.Context) {
	sess, ok := s.sessions.SessionGet(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": session.ErrSessionNotFound.Error()})
		return
	}
	doc, err := sess.Document()
	if err != nil {
		c.JSON(statusOf(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, model.ToRecord(doc.Tree()))
}

func (s *Server) badRequest(c *gin.Context, errs []fieldError) {
	s.logger.Warn(c.Request.Context(), "Invalid request", log.Fields{"path": c.FullPath(), "errors": errs})
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "errors": errs})
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrNoMindmap):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

func fieldErrors(err error) []fieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []fieldError{{Field: "body", Message: err.Error()}}
	}
	out := make([]fieldError, len(verrs))
	for i, fe := range verrs {
		out[i] = fieldError{Field: jsonName(fe.Field()), Message: describe(fe)}
	}
	return out
}

func describe(fe validator.FieldError) string {
	name := jsonName(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", name)
	case "max":
		return fmt.Sprintf("%s must be at most %s", name, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", name, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", name, strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Sprintf("%s is invalid", name)
	}
}

// jsonName lowercases the first letter of a Go field name.
func jsonName(field string) string {
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}
