package ports

// Tokenizer issues and checks operator tokens for the admin endpoints
type Tokenizer interface {
	IssueAdminToken(subject string) (string, error)
	// ParseAdminToken returns the token subject.
	ParseAdminToken(token string) (string, error)
}
