package mailer

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// ContentType selects how the body is turned into plain text and HTML.
type ContentType string

const (
	ContentTypePlain    ContentType = "plain"
	ContentTypeMarkdown ContentType = "markdown"
	ContentTypeHTML     ContentType = "html"
)

// Valid reports whether ct is one of the supported content types.
func (ct ContentType) Valid() bool {
	switch ct {
	case ContentTypePlain, ContentTypeMarkdown, ContentTypeHTML:
		return true
	}
	return false
}

// Front matter keys.
const (
	KeyTo          = "to"
	KeyCC          = "cc"
	KeyBCC         = "bcc"
	KeySubject     = "subject"
	KeyAttachments = "attachments"
	KeyFrom        = "from"
	KeyHeaders     = "headers"
	KeyContentType = "content-type"
)

var (
	allowedKeys  = []string{KeyTo, KeyCC, KeyBCC, KeySubject, KeyAttachments, KeyFrom, KeyHeaders, KeyContentType}
	requiredKeys = []string{KeyTo, KeySubject, KeyContentType}
)

// FrontMatter holds the unrendered metadata of a template document.
// Every string except ContentType is a template evaluated at compose time.
type FrontMatter struct {
	Headers     map[string]string
	keys        map[string]struct{}
	To          string
	CC          string
	BCC         string
	Subject     string
	From        string
	ContentType ContentType
	Attachments []AttachmentTemplate
}

// AttachmentTemplate is an attachment declared in front matter.
// Bare entries carry only a path; name and type are inferred when loading.
type AttachmentTemplate struct {
	Path string
	Name string
	Type string
	Bare bool
}

// Has reports whether key was present in the front matter.
func (fm *FrontMatter) Has(key string) bool {
	_, ok := fm.keys[key]
	return ok
}

// ParseFrontMatter decodes and validates a front matter block.
func ParseFrontMatter(text string) (*FrontMatter, error) {
	var root yaml.Node
	if err := yaml.Unmarshal([]byte(quoteTemplateValues(text)), &root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFrontmatter, err)
	}

	values, err := mappingValues(&root)
	if err != nil {
		return nil, err
	}

	var unknown []string
	for key := range values {
		if !slices.Contains(allowedKeys, key) {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		slices.Sort(unknown)
		return nil, &KeyError{Err: ErrUnknownKey, Keys: unknown}
	}

	var missing []string
	for _, key := range requiredKeys {
		if _, ok := values[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, &KeyError{Err: ErrMissingKey, Keys: missing}
	}

	fm := &FrontMatter{keys: make(map[string]struct{}, len(values))}
	for key := range values {
		fm.keys[key] = struct{}{}
	}

	ct, err := scalar(KeyContentType, values[KeyContentType])
	if err != nil {
		return nil, err
	}
	fm.ContentType = ContentType(ct)
	if !fm.ContentType.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidContentType, ct)
	}

	if fm.Subject, err = scalar(KeySubject, values[KeySubject]); err != nil {
		return nil, err
	}
	if fm.To, err = recipients(KeyTo, values[KeyTo]); err != nil {
		return nil, err
	}
	if n, ok := values[KeyCC]; ok {
		if fm.CC, err = recipients(KeyCC, n); err != nil {
			return nil, err
		}
	}
	if n, ok := values[KeyBCC]; ok {
		if fm.BCC, err = recipients(KeyBCC, n); err != nil {
			return nil, err
		}
	}
	if n, ok := values[KeyFrom]; ok {
		if fm.From, err = scalar(KeyFrom, n); err != nil {
			return nil, err
		}
	}
	if n, ok := values[KeyHeaders]; ok {
		if fm.Headers, err = headers(n); err != nil {
			return nil, err
		}
	}
	if n, ok := values[KeyAttachments]; ok {
		if fm.Attachments, err = attachmentTemplates(n); err != nil {
			return nil, err
		}
	}

	return fm, nil
}

// templateValue matches a block-context value that starts with "{".
// YAML would read it as a flow mapping, so it gets single-quoted instead.
var templateValue = regexp.MustCompile(`^(\s*(?:-\s+)?(?:[^\s#'"{\-][^:]*:[ \t]+)?)(\{.*?)[ \t]*$`)

// blockScalar matches a line whose value is a literal or folded block indicator.
var blockScalar = regexp.MustCompile(`^\s*(?:-\s+)?(?:[^\s#'"{\-][^:]*:[ \t]+)?[|>][+-]?[1-9]?[+-]?[ \t]*(?:#.*)?$`)

func quoteTemplateValues(text string) string {
	lines := strings.Split(text, "\n")
	block := -1 // indentation of the line that opened a block scalar

	for i, line := range lines {
		line = strings.TrimSuffix(line, "\r")
		lines[i] = line

		if block >= 0 {
			if strings.TrimSpace(line) == "" || indentOf(line) > block {
				continue
			}
			block = -1
		}
		if blockScalar.MatchString(line) {
			block = indentOf(line)
			continue
		}

		m := templateValue.FindStringSubmatch(line)
		if m == nil || m[2] == "{}" {
			continue
		}
		value, comment := splitComment(m[2])
		lines[i] = m[1] + "'" + strings.ReplaceAll(value, "'", "''") + "'" + comment
	}
	return strings.Join(lines, "\n")
}

func indentOf(line string) int {
	return len(line) - len(strings.TrimLeft(line, " \t"))
}

// splitComment cuts a trailing " #" comment that follows the last "}}".
func splitComment(value string) (string, string) {
	from := strings.LastIndex(value, "}}")
	if from < 0 {
		from = 0
	}
	for j := from; j < len(value); j++ {
		if value[j] == '#' && j > 0 && (value[j-1] == ' ' || value[j-1] == '\t') {
			return strings.TrimRight(value[:j], " \t"), " " + value[j:]
		}
	}
	return value, ""
}

func resolve(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	return n
}

func isNull(n *yaml.Node) bool {
	return n == nil || n.Kind == 0 || (n.Kind == yaml.ScalarNode && n.Tag == "!!null")
}

// mappingValues returns the top-level keys of the document.
func mappingValues(root *yaml.Node) (map[string]*yaml.Node, error) {
	n := resolve(root)
	if n.Kind == yaml.DocumentNode {
		if len(n.Content) == 0 {
			return map[string]*yaml.Node{}, nil
		}
		n = resolve(n.Content[0])
	}
	if isNull(n) {
		return map[string]*yaml.Node{}, nil
	}
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: expected a mapping of keys", ErrInvalidFrontmatter)
	}

	values := make(map[string]*yaml.Node, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		k := resolve(n.Content[i])
		if k.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("%w: keys must be strings", ErrInvalidFrontmatter)
		}
		if _, dup := values[k.Value]; dup {
			return nil, fmt.Errorf("%w: duplicate key %q", ErrInvalidFrontmatter, k.Value)
		}
		values[k.Value] = resolve(n.Content[i+1])
	}
	return values, nil
}

func scalar(key string, n *yaml.Node) (string, error) {
	if isNull(n) {
		return "", nil
	}
	if n.Kind != yaml.ScalarNode {
		return "", fmt.Errorf("%w: %s must be a string", ErrInvalidFrontmatter, key)
	}
	return n.Value, nil
}

// recipients accepts a string or a list of strings.
func recipients(key string, n *yaml.Node) (string, error) {
	if n == nil || n.Kind != yaml.SequenceNode {
		return scalar(key, n)
	}
	parts := make([]string, 0, len(n.Content))
	for _, item := range n.Content {
		v, err := scalar(key, resolve(item))
		if err != nil {
			return "", err
		}
		parts = append(parts, v)
	}
	return strings.Join(parts, ", "), nil
}

func headers(n *yaml.Node) (map[string]string, error) {
	if isNull(n) {
		return map[string]string{}, nil
	}
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: headers must be a mapping", ErrInvalidFrontmatter)
	}
	out := make(map[string]string, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		name, err := scalar(KeyHeaders, resolve(n.Content[i]))
		if err != nil {
			return nil, err
		}
		value, err := scalar("header "+name, resolve(n.Content[i+1]))
		if err != nil {
			return nil, err
		}
		out[name] = value
	}
	return out, nil
}

func attachmentTemplates(n *yaml.Node) ([]AttachmentTemplate, error) {
	if isNull(n) {
		return nil, nil
	}
	if n.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("%w: attachments must be a list", ErrInvalidFrontmatter)
	}

	out := make([]AttachmentTemplate, 0, len(n.Content))
	for i, item := range n.Content {
		item = resolve(item)
		if item.Kind == yaml.ScalarNode {
			out = append(out, AttachmentTemplate{Path: item.Value, Bare: true})
			continue
		}
		if item.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("%w: attachment #%d must be a path or a mapping", ErrInvalidFrontmatter, i)
		}

		var at AttachmentTemplate
		for j := 0; j+1 < len(item.Content); j += 2 {
			key := resolve(item.Content[j]).Value
			value, err := scalar("attachment "+key, resolve(item.Content[j+1]))
			if err != nil {
				return nil, err
			}
			switch key {
			case "path":
				at.Path = value
			case "name":
				at.Name = value
			case "type":
				at.Type = value
			default:
				return nil, fmt.Errorf("%w: attachment #%d has unknown key %q", ErrInvalidFrontmatter, i, key)
			}
		}
		out = append(out, at)
	}
	return out, nil
}
