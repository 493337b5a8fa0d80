// Package sql provides injection-safe composition of PostgreSQL statements
// from typed fragments.
//
// Statements are assembled from four fragment kinds: SQL (trusted raw text),
// Identifier (a quoted object name), Literal (a value passed to the driver as
// a bind parameter) and SafeLiteral (a deterministically sanitized constant
// rendered inline). Fragments combine into Composed sequences via Format,
// Join and Concat, and render to a query string plus an ordered parameter
// list with Render.
//
// Untrusted input never reaches the query text: identifiers double embedded
// quote characters and are wrapped in double quotes, and literals always
// become positional placeholders regardless of content.
//
// Example:
//
//	stmt, err := sql.Format(
//		"ALTER TABLE {table} OWNER TO {owner} -- {comment}",
//		sql.Args{
//			"table":   sql.Join(sql.Raw("."), sql.Ident("public"), sql.Ident("accounts")),
//			"owner":   sql.Ident("app"),
//			"comment": sql.Value("untrusted"),
//		},
//	)
//	if err != nil {
//		return err
//	}
//	query, params, err := sql.Render(stmt)
//	// query:  ALTER TABLE "public"."accounts" OWNER TO "app" -- $1
//	// params: ["untrusted"]
package sql
