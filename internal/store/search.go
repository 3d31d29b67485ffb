package store

import (
	"fmt"
	"regexp"
	"strings"
)

// SearchParams filters declarations. Empty fields match everything.
type SearchParams struct {
	Project      string
	Label        string
	NamePattern  string // regex over name, symbol and qualified name
	FilePattern  string // glob over the relative file path
	Language     string
	Relationship string // edge type the degrees count; empty counts all
	Limit        int
	Offset       int
}

// SearchResult is a matching declaration with its edge degrees.
type SearchResult struct {
	Node      *Node
	InDegree  int
	OutDegree int
}

// SearchOutput is one page of results and the total number of matches.
type SearchOutput struct {
	Results []*SearchResult
	Total   int
}

const (
	defaultSearchLimit = 100
	maxSearchRows      = 100000
)

// Search returns a page of the declarations matching p in file order.
func (s *Store) Search(p SearchParams) (*SearchOutput, error) {
	if p.Limit <= 0 {
		p.Limit = defaultSearchLimit
	}
	p.Offset = max(p.Offset, 0)

	var re *regexp.Regexp
	if p.NamePattern != "" {
		var err error
		if re, err = regexp.Compile(p.NamePattern); err != nil {
			return nil, fmt.Errorf("invalid name pattern: %w", err)
		}
	}

	where := []string{"project=?"}
	args := []any{p.Project}
	for _, f := range []struct{ column, value string }{
		{"label", p.Label},
		{"language", p.Language},
	} {
		if f.value != "" {
			where = append(where, f.column+"=?")
			args = append(args, f.value)
		}
	}
	if p.FilePattern != "" {
		where = append(where, "file_path LIKE ?")
		args = append(args, globToLike(p.FilePattern))
	}
	args = append(args, maxSearchRows)

	nodes, err := s.queryNodes(nodeSelect+" WHERE "+strings.Join(where, " AND ")+
		" ORDER BY file_path, start_line, start_col LIMIT ?", args...)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	matched := nodes[:0]
	for _, n := range nodes {
		if re == nil || re.MatchString(n.Name) || re.MatchString(n.Symbol) || re.MatchString(n.QualifiedName) {
			matched = append(matched, n)
		}
	}

	out := &SearchOutput{Total: len(matched)}
	lo := min(p.Offset, len(matched))
	hi := min(lo+p.Limit, len(matched))
	for _, n := range matched[lo:hi] {
		r := &SearchResult{Node: n}
		if r.InDegree, r.OutDegree, err = s.degrees(n.ID, p.Relationship); err != nil {
			return nil, err
		}
		out.Results = append(out.Results, r)
	}
	return out, nil
}

func (s *Store) degrees(id int64, edgeType string) (in, out int, err error) {
	q := "SELECT COALESCE(SUM(target_id=?), 0), COALESCE(SUM(source_id=?), 0) FROM edges WHERE (source_id=? OR target_id=?)"
	args := []any{id, id, id, id}
	if edgeType != "" {
		q += " AND type=?"
		args = append(args, edgeType)
	}
	if err := s.q.QueryRow(q, args...).Scan(&in, &out); err != nil {
		return 0, 0, fmt.Errorf("degrees of %d: %w", id, err)
	}
	return in, out, nil
}

// globToLike turns a glob into a LIKE pattern; ** and * both match any run.
func globToLike(pattern string) string {
	return strings.NewReplacer("**", "%", "*", "%", "?", "_").Replace(pattern)
}
