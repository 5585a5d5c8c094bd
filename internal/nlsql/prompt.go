package nlsql

import "strings"

// PromptContext is everything one generation call needs. A retry builds a new
// context carrying the failed SQL and its error; contexts are never mutated.
type PromptContext struct {
	CreateStatements []string
	Question         string
	PriorSQL         string
	PriorError       string
}

// Render concatenates the instruction header, the table description(s), the
// question, and (on retry) the prior failure into a single prompt ending with
// the response cue.
func (p PromptContext) Render() string {
	var b strings.Builder

	b.WriteString("### Instructions:\n")
	b.WriteString("Your task is to convert a question into a SQL query, given a database schema.\n")
	b.WriteString("Adhere to these rules:\n")
	b.WriteString("- **Deliberately go through the question and database schema word by word** to appropriately answer the question\n")
	b.WriteString("- **Use Table Aliases** to prevent ambiguity. For example, `SELECT table1.col1, table2.col1 FROM table1 JOIN table2 ON table1.id = table2.id`.\n")
	b.WriteString("- When creating a ratio, always cast the numerator as float\n")
	b.WriteString("\n### Input:\n")
	b.WriteString("Generate a SQL query that answers the question `" + p.Question + "`.\n")
	b.WriteString("This query will run on a database whose schema is represented in this string:\n\n")
	for _, stmt := range p.CreateStatements {
		b.WriteString(stmt)
		b.WriteString("\n")
	}

	if p.PriorError != "" && p.PriorSQL != "" {
		b.WriteString("\n")
		b.WriteString(p.PriorSQL)
		b.WriteString("\n\n---\n")
		b.WriteString("the SQL above gave this error: " + p.PriorError + ".\n")
		b.WriteString("Please fix it.\n")
	}

	b.WriteString("\n### Response:\n")
	b.WriteString("Based on your instructions, here is the SQL query I have generated to answer the question `" + p.Question + "`:\n")
	b.WriteString("```sql\n")

	return b.String()
}
