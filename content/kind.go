package content

import "github.com/danielhkuo/rinkside/models"

// FieldType controls how a column is coerced, stored and scanned.
type FieldType string

const (
	Text    FieldType = "text"
	Boolean FieldType = "boolean"
	JSON    FieldType = "json" // stored as TEXT, returned as raw JSON
)

// Field describes one editable column of a kind.
type Field struct {
	Name     string
	Type     FieldType
	Required bool
	Rules    string // validator tags checked against present values
	Sanitize bool   // strip markup before storing
	Filter   bool   // exact-match query parameter on list endpoints
	Search   bool   // part of the ?q= substring search
	Managed  bool   // kept by the server; never cleared by a full update
}

// Kind describes a table the generic content endpoints manage.
type Kind struct {
	Name  string // URL segment
	Table string
	Label string

	Fields []Field

	// Lifecycle kinds carry status, published_at and archived_at.
	Lifecycle bool

	// Generatable kinds can be produced by the generation service.
	Generatable bool
	Primary     string // field a plain bullet list maps onto
	Describe    string // one-line description used in prompts
}

const SourceKind = "source-content"

// Field returns the named field.
func (k *Kind) Field(name string) (Field, bool) {
	for _, f := range k.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Info returns the catalogue entry served to the CMS.
func (k *Kind) Info() models.KindInfo {
	info := models.KindInfo{
		Name:        k.Name,
		Label:       k.Label,
		Lifecycle:   k.Lifecycle,
		Generatable: k.Generatable,
		Fields:      make([]models.KindField, 0, len(k.Fields)),
	}
	for _, f := range k.Fields {
		info.Fields = append(info.Fields, models.KindField{
			Name:     f.Name,
			Type:     string(f.Type),
			Required: f.Required,
			Rules:    f.Rules,
		})
	}
	return info
}

// columns lists every selected column in scan order.
func (k *Kind) columns() []string {
	cols := []string{"id"}
	for _, f := range k.Fields {
		cols = append(cols, f.Name)
	}
	if k.Lifecycle {
		cols = append(cols, "status", "published_at", "archived_at")
	}
	return append(cols, "created_at", "updated_at")
}

var (
	difficulty = Field{Name: "difficulty", Type: Text, Rules: "oneof=easy medium hard", Filter: true}
	categoryID = Field{Name: "category_id", Type: Text, Rules: "uuid", Filter: true}
	sourceID   = Field{Name: "source_content_id", Type: Text, Rules: "uuid", Filter: true}
)

var registry = []*Kind{
	{
		Name:  "categories",
		Table: "categories",
		Label: "Categories",
		Fields: []Field{
			{Name: "name", Type: Text, Required: true, Rules: "max=120", Sanitize: true, Search: true},
			{Name: "slug", Type: Text, Required: true, Rules: "max=120,lowercase", Filter: true},
			{Name: "description", Type: Text, Sanitize: true},
		},
	},
	{
		Name:  "prompts",
		Table: "prompts",
		Label: "Prompts",
		Fields: []Field{
			{Name: "name", Type: Text, Required: true, Rules: "max=120", Search: true},
			{Name: "content_kind", Type: Text, Filter: true},
			{Name: "prompt_text", Type: Text, Required: true, Search: true},
			{Name: "notes", Type: Text},
		},
	},
	{
		Name:  SourceKind,
		Table: "source_content",
		Label: "Ingested content",
		Fields: []Field{
			{Name: "title", Type: Text, Required: true, Rules: "max=300", Sanitize: true, Search: true},
			{Name: "content_text", Type: Text, Required: true, Sanitize: true, Search: true},
			{Name: "source_url", Type: Text, Rules: "url"},
			{Name: "used_for_kinds", Type: JSON, Managed: true},
		},
	},
	{
		Name:  "trivia-multiple-choice",
		Table: "trivia_multiple_choice",
		Label: "Trivia: multiple choice",
		Fields: []Field{
			{Name: "question", Type: Text, Required: true, Rules: "max=500", Sanitize: true, Search: true},
			{Name: "correct_answer", Type: Text, Required: true, Rules: "max=200", Sanitize: true},
			{Name: "incorrect_answers", Type: JSON, Required: true, Rules: "min=1,max=5,dive,required"},
			{Name: "explanation", Type: Text, Sanitize: true},
			difficulty, categoryID, sourceID,
		},
		Lifecycle:   true,
		Generatable: true,
		Primary:     "question",
		Describe:    "a hockey multiple-choice trivia question with one correct answer and three incorrect answers",
	},
	{
		Name:  "trivia-true-false",
		Table: "trivia_true_false",
		Label: "Trivia: true or false",
		Fields: []Field{
			{Name: "statement", Type: Text, Required: true, Rules: "max=500", Sanitize: true, Search: true},
			{Name: "is_true", Type: Boolean, Required: true},
			{Name: "explanation", Type: Text, Sanitize: true},
			difficulty, categoryID, sourceID,
		},
		Lifecycle:   true,
		Generatable: true,
		Primary:     "statement",
		Describe:    "a hockey true-or-false statement with whether it is true and a short explanation",
	},
	{
		Name:  "trivia-who-am-i",
		Table: "trivia_who_am_i",
		Label: "Trivia: who am I",
		Fields: []Field{
			{Name: "clues", Type: JSON, Required: true, Rules: "min=2,max=6,dive,required"},
			{Name: "answer", Type: Text, Required: true, Rules: "max=200", Sanitize: true, Search: true},
			{Name: "explanation", Type: Text, Sanitize: true},
			difficulty, categoryID, sourceID,
		},
		Lifecycle:   true,
		Generatable: true,
		Primary:     "answer",
		Describe:    "a 'who am I' hockey riddle: clues from hardest to easiest and the player or team answer",
	},
	{
		Name:  "stats",
		Table: "stats",
		Label: "Stats",
		Fields: []Field{
			{Name: "title", Type: Text, Required: true, Rules: "max=200", Sanitize: true, Search: true},
			{Name: "stat_value", Type: Text, Required: true, Rules: "max=100", Sanitize: true},
			{Name: "description", Type: Text, Sanitize: true, Search: true},
			{Name: "subject", Type: Text, Sanitize: true, Filter: true},
			{Name: "season", Type: Text, Rules: "max=20", Filter: true},
			categoryID, sourceID,
		},
		Lifecycle:   true,
		Generatable: true,
		Primary:     "title",
		Describe:    "a notable hockey statistic with its value and a sentence of context",
	},
	{
		Name:  "greetings",
		Table: "greetings",
		Label: "Greetings",
		Fields: []Field{
			{Name: "greeting_text", Type: Text, Required: true, Rules: "max=300", Sanitize: true, Search: true},
			{Name: "occasion", Type: Text, Sanitize: true, Filter: true},
			categoryID, sourceID,
		},
		Lifecycle:   true,
		Generatable: true,
		Primary:     "greeting_text",
		Describe:    "a short, upbeat hockey-themed greeting for visitors to the site",
	},
	{
		Name:  "motivational-quotes",
		Table: "motivational_quotes",
		Label: "Motivational quotes",
		Fields: []Field{
			{Name: "quote", Type: Text, Required: true, Rules: "max=500", Sanitize: true, Search: true},
			{Name: "author", Type: Text, Sanitize: true, Filter: true, Search: true},
			{Name: "context", Type: Text, Sanitize: true},
			{Name: "theme", Type: Text, Filter: true},
			categoryID, sourceID,
		},
		Lifecycle:   true,
		Generatable: true,
		Primary:     "quote",
		Describe:    "a motivational hockey quote with its author when known",
	},
	{
		Name:  "wisdom",
		Table: "wisdom",
		Label: "Wisdom",
		Fields: []Field{
			{Name: "title", Type: Text, Required: true, Rules: "max=200", Sanitize: true, Search: true},
			{Name: "musing", Type: Text, Required: true, Sanitize: true, Search: true},
			{Name: "from_the_box", Type: Text, Sanitize: true},
			{Name: "theme", Type: Text, Filter: true},
			categoryID, sourceID,
		},
		Lifecycle:   true,
		Generatable: true,
		Primary:     "musing",
		Describe:    "a reflective piece of hockey wisdom: a title, a short musing and a punchy line from the penalty box",
	},
}

// Lookup returns the kind registered under name.
func Lookup(name string) (*Kind, bool) {
	for _, k := range registry {
		if k.Name == name {
			return k, true
		}
	}
	return nil, false
}

// Kinds returns every registered kind in catalogue order.
func Kinds() []*Kind {
	out := make([]*Kind, len(registry))
	copy(out, registry)
	return out
}

// GeneratableKinds returns the kinds the generation service can produce.
func GeneratableKinds() []*Kind {
	var out []*Kind
	for _, k := range registry {
		if k.Generatable {
			out = append(out, k)
		}
	}
	return out
}
