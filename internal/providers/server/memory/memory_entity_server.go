// Package memory is an in-process EntityServer test double. It backs the
// engine, resolver and CLI tests and is never wired into the cement binary.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/crmarques/cement/entity"
	"github.com/crmarques/cement/faults"
	"github.com/crmarques/cement/server"
)

var _ server.EntityServer = (*Server)(nil)
var _ server.RawReader = (*Server)(nil)

// Calls counts the requests served, by operation.
type Calls struct {
	Search int
	Read   int
	Create int
	Update int
	Delete int
	Ping   int
}

func (c Calls) Mutations() int {
	return c.Create + c.Update + c.Delete
}

// Server is an in-memory entity server honoring search expressions, scope
// parameters, pagination and partial updates.
type Server struct {
	mu       sync.Mutex
	nextID   int64
	records  map[string]map[int64]entity.Entity
	raw      map[string]map[int64]map[string]any
	failures map[string]error
	calls    Calls
	updates  [][]string
	version  string
}

func New() *Server {
	return &Server{
		nextID:   1,
		records:  map[string]map[int64]entity.Entity{},
		raw:      map[string]map[int64]map[string]any{},
		failures: map[string]error{},
		version:  "3.9.0",
	}
}

// Seed stores item as-is, assigning an id when it has none.
func (s *Server) Seed(item entity.Entity) entity.Entity {
	s.mu.Lock()
	defer s.mu.Unlock()

	item = item.Clone()
	if item.ID == 0 {
		item.ID = s.allocateID()
	} else if item.ID >= s.nextID {
		s.nextID = item.ID + 1
	}
	s.kindRecords(item.Kind)[item.ID] = item
	return item.Clone()
}

// SetRaw attaches undecoded attributes returned by ReadRaw.
func (s *Server) SetRaw(kind string, id int64, record map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.raw[kind] == nil {
		s.raw[kind] = map[int64]map[string]any{}
	}
	s.raw[kind][id] = record
}

// FailOn makes every later call of operation fail with err.
func (s *Server) FailOn(operation string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[operation] = err
}

func (s *Server) SetVersion(version string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.version = version
}

func (s *Server) Calls() Calls {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// UpdatedFields returns the field lists of every update served, in order.
func (s *Server) UpdatedFields() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	cloned := make([][]string, len(s.updates))
	for idx, fields := range s.updates {
		cloned[idx] = append([]string{}, fields...)
	}
	return cloned
}

// Get returns the stored record without counting a call.
func (s *Server) Get(kind string, id int64) (entity.Entity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.kindRecords(kind)[id]
	return item.Clone(), ok
}

func (s *Server) Search(_ context.Context, schema entity.Schema, query server.SearchQuery) (server.SearchPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls.Search++
	if err := s.failures["search"]; err != nil {
		return server.SearchPage{}, err
	}

	criteria, err := parseExpression(query.Search)
	if err != nil {
		return server.SearchPage{}, err
	}

	records := s.kindRecords(schema.Kind)
	ids := make([]int64, 0, len(records))
	for id := range records {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	matches := make([]entity.Entity, 0, len(ids))
	for _, id := range ids {
		item := records[id]
		if matchesAll(item, criteria) && matchesAll(item, query.Scope) {
			matches = append(matches, readable(schema, item))
		}
	}

	perPage := query.PerPage
	if perPage <= 0 {
		perPage = len(matches)
	}
	page := query.Page
	if page <= 0 {
		page = 1
	}
	start := (page - 1) * perPage
	if start > len(matches) {
		start = len(matches)
	}
	end := start + perPage
	if end > len(matches) {
		end = len(matches)
	}

	return server.SearchPage{
		Results:  matches[start:end],
		Total:    len(records),
		Subtotal: len(matches),
		Page:     page,
		PerPage:  perPage,
	}, nil
}

func (s *Server) Read(_ context.Context, schema entity.Schema, id int64) (entity.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls.Read++
	if err := s.failures["read"]; err != nil {
		return entity.Entity{}, err
	}

	item, ok := s.kindRecords(schema.Kind)[id]
	if !ok {
		return entity.Entity{}, notFound(schema, id)
	}
	return readable(schema, item), nil
}

func (s *Server) ReadRaw(_ context.Context, schema entity.Schema, id int64) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls.Read++

	item, ok := s.kindRecords(schema.Kind)[id]
	if !ok {
		return nil, notFound(schema, id)
	}
	record := map[string]any{"id": item.ID}
	for key, value := range readable(schema, item).Fields {
		record[key] = value
	}
	for key, value := range s.raw[schema.Kind][id] {
		record[key] = value
	}
	return record, nil
}

func (s *Server) Create(_ context.Context, schema entity.Schema, item entity.Entity) (entity.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls.Create++
	if err := s.failures["create"]; err != nil {
		return entity.Entity{}, err
	}

	stored := entity.Entity{Kind: schema.Kind, ID: s.allocateID(), Fields: entity.Fields{}}
	for _, field := range schema.Fields {
		if value, ok := item.Get(field.Name); ok {
			stored.Fields[field.Name] = value
		}
	}
	s.kindRecords(schema.Kind)[stored.ID] = stored
	return readable(schema, stored), nil
}

func (s *Server) Update(_ context.Context, schema entity.Schema, item entity.Entity, fields []string) (entity.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls.Update++
	s.updates = append(s.updates, append([]string{}, fields...))
	if err := s.failures["update"]; err != nil {
		return entity.Entity{}, err
	}

	stored, ok := s.kindRecords(schema.Kind)[item.ID]
	if !ok {
		return entity.Entity{}, notFound(schema, item.ID)
	}
	stored = stored.Clone()
	for _, name := range fields {
		if _, declared := schema.Field(name); !declared {
			continue
		}
		value, _ := item.Get(name)
		stored.Fields[name] = value
	}
	s.kindRecords(schema.Kind)[stored.ID] = stored
	return readable(schema, stored), nil
}

func (s *Server) Delete(_ context.Context, schema entity.Schema, item entity.Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls.Delete++
	if err := s.failures["delete"]; err != nil {
		return err
	}

	records := s.kindRecords(schema.Kind)
	if _, ok := records[item.ID]; !ok {
		return notFound(schema, item.ID)
	}
	delete(records, item.ID)
	return nil
}

func (s *Server) Ping(_ context.Context) (server.Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls.Ping++
	if err := s.failures["ping"]; err != nil {
		return server.Status{}, err
	}
	return server.Status{Version: s.version, Result: "ok"}, nil
}

func (s *Server) kindRecords(kind string) map[int64]entity.Entity {
	records, ok := s.records[kind]
	if !ok {
		records = map[int64]entity.Entity{}
		s.records[kind] = records
	}
	return records
}

func (s *Server) allocateID() int64 {
	id := s.nextID
	s.nextID++
	return id
}

// readable drops write-only fields, which a real server never returns.
func readable(schema entity.Schema, item entity.Entity) entity.Entity {
	result := item.Clone()
	for _, field := range schema.Fields {
		if field.WriteOnly {
			delete(result.Fields, field.Name)
		}
	}
	return result
}

func notFound(schema entity.Schema, id int64) error {
	return faults.NewTypedError(faults.NotFoundError, fmt.Sprintf("%s %d not found", schema.DisplayName(), id), nil)
}

func parseExpression(expression string) ([]server.Param, error) {
	var params []server.Param
	rest := strings.TrimSpace(expression)
	for rest != "" {
		separator := strings.Index(rest, "=")
		if separator <= 0 {
			return nil, faults.NewTypedError(faults.ValidationError, fmt.Sprintf("invalid search expression %q", expression), nil)
		}
		key := strings.TrimSpace(rest[:separator])
		quoted, err := strconv.QuotedPrefix(rest[separator+1:])
		if err != nil {
			return nil, faults.NewTypedError(faults.ValidationError, fmt.Sprintf("invalid search expression %q", expression), err)
		}
		value, err := strconv.Unquote(quoted)
		if err != nil {
			return nil, faults.NewTypedError(faults.ValidationError, fmt.Sprintf("invalid search expression %q", expression), err)
		}
		params = append(params, server.Param{Key: key, Value: value})

		rest = strings.TrimSpace(rest[separator+1+len(quoted):])
		rest = strings.TrimSpace(strings.TrimPrefix(rest, ","))
	}
	return params, nil
}

func matchesAll(item entity.Entity, params []server.Param) bool {
	for _, param := range params {
		if !matches(item, param) {
			return false
		}
	}
	return true
}

func matches(item entity.Entity, param server.Param) bool {
	if value, ok := item.Get(param.Key); ok {
		return formatScalar(value) == param.Value
	}

	base, isID := strings.CutSuffix(param.Key, "_id")
	if !isID {
		return false
	}
	if value, ok := item.Get(base); ok {
		if ref, ok := value.(entity.Ref); ok {
			return strconv.FormatInt(ref.ID, 10) == param.Value
		}
		return false
	}
	if value, ok := item.Get(base + "s"); ok {
		if refs, ok := value.([]entity.Ref); ok {
			for _, ref := range refs {
				if strconv.FormatInt(ref.ID, 10) == param.Value {
					return true
				}
			}
		}
	}
	return false
}

func formatScalar(value entity.Value) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case entity.Ref:
		return strconv.FormatInt(typed.ID, 10)
	default:
		return fmt.Sprint(typed)
	}
}
