package publisher

import (
	"fmt"
	"strings"
	"sync"

	"github.com/gridprotectionalliance/gep-publisher/internal/subscriber"
	"github.com/gridprotectionalliance/gep-publisher/internal/wire"
)

// SignalRecord is one row of the metadata catalog: everything a filter
// expression or a metadata refresh needs to know about a signal, short of
// its live value.
type SignalRecord struct {
	SignalID   wire.Guid
	Source     string
	ID         uint32
	Tag        string
	SignalType string
	Table      string
}

// Catalog is the publisher's tabular metadata store and filter-expression
// compiler, the "external collaborator" named in §1 as out of scope for this
// component but required as a concrete stand-in so DataPublisher has
// something to compile Subscribe filter expressions against. It supports
// the subset of FILTER-expression syntax actually exercised by this
// protocol: `FILTER <table> WHERE <column>='<value>'`, optionally with
// `AND`-joined equality clauses, matched against a signal's Table and
// SignalType fields. An empty expression matches every signal in the
// catalog (an open subscription).
type Catalog struct {
	mu      sync.RWMutex
	signals []SignalRecord
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{}
}

// AddSignal registers one signal. Safe for concurrent use with Compile and
// SerializeMetadata.
func (c *Catalog) AddSignal(rec SignalRecord) {
	c.mu.Lock()
	c.signals = append(c.signals, rec)
	c.mu.Unlock()
}

// Compile evaluates a filter expression against the catalog, returning the
// matching signals in a stable (registration) order so that repeated
// subscriptions against an unchanged catalog assign the same runtime
// indices.
func (c *Catalog) Compile(expression string) ([]subscriber.SignalEntry, error) {
	clauses, table, err := parseFilterExpression(expression)
	if err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	entries := make([]subscriber.SignalEntry, 0, len(c.signals))
	for _, rec := range c.signals {
		if table != "" && !strings.EqualFold(rec.Table, table) {
			continue
		}
		if !matchesClauses(rec, clauses) {
			continue
		}
		entries = append(entries, subscriber.SignalEntry{
			SignalID: rec.SignalID,
			Source:   rec.Source,
			ID:       rec.ID,
			Tag:      rec.Tag,
		})
	}
	return entries, nil
}

// filterClause is one `column='value'` equality test.
type filterClause struct {
	column string
	value  string
}

// parseFilterExpression parses the subset of FILTER-expression syntax this
// catalog understands: `FILTER <table> WHERE <clause> [AND <clause>]...`.
// An empty expression (no filter requested) parses to a zero-clause,
// empty-table match-everything result.
func parseFilterExpression(expression string) (clauses []filterClause, table string, err error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, "", nil
	}

	upper := strings.ToUpper(expression)
	if !strings.HasPrefix(upper, "FILTER ") {
		return nil, "", fmt.Errorf("publisher: unsupported filter expression %q: expected a FILTER clause", expression)
	}
	rest := strings.TrimSpace(expression[len("FILTER "):])

	whereIdx := strings.Index(strings.ToUpper(rest), " WHERE ")
	if whereIdx < 0 {
		table = strings.TrimSpace(rest)
		return nil, table, nil
	}
	table = strings.TrimSpace(rest[:whereIdx])
	predicate := strings.TrimSpace(rest[whereIdx+len(" WHERE "):])

	for _, part := range strings.Split(predicate, " AND ") {
		clause, err := parseClause(part)
		if err != nil {
			return nil, "", err
		}
		clauses = append(clauses, clause)
	}
	return clauses, table, nil
}

func parseClause(s string) (filterClause, error) {
	eq := strings.Index(s, "=")
	if eq < 0 {
		return filterClause{}, fmt.Errorf("publisher: malformed filter clause %q: expected column=value", s)
	}
	column := strings.TrimSpace(s[:eq])
	value := strings.TrimSpace(s[eq+1:])
	value = strings.Trim(value, "'\"")
	return filterClause{column: column, value: value}, nil
}

func matchesClauses(rec SignalRecord, clauses []filterClause) bool {
	for _, cl := range clauses {
		switch strings.ToUpper(cl.column) {
		case "SIGNALTYPE":
			if !strings.EqualFold(rec.SignalType, cl.value) {
				return false
			}
		case "SOURCE":
			if !strings.EqualFold(rec.Source, cl.value) {
				return false
			}
		case "TAG", "POINTTAG":
			if !strings.EqualFold(rec.Tag, cl.value) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// SerializeMetadata encodes the full catalog as the MetadataRefresh response
// body: u32 recordCount, then per record (16-byte Guid GEP layout, source,
// id, tag, signalType strings).
func (c *Catalog) SerializeMetadata(enc wire.StringEncoding) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	buf := wire.NewBuffer(64 + len(c.signals)*48)
	buf.WriteUint32(uint32(len(c.signals)))
	for _, rec := range c.signals {
		buf.WriteGuid(rec.SignalID, wire.GEPLayout)
		buf.WriteString(rec.Source, enc)
		buf.WriteUint32(rec.ID)
		buf.WriteString(rec.Tag, enc)
		buf.WriteString(rec.SignalType, enc)
	}
	return buf.Bytes(), nil
}

// Len reports the number of registered signals.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.signals)
}
