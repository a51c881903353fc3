package backend

// Request bodies. Field order is the order the backend receives them in.

type InitializeRequest struct {
	RepoURL   string `json:"repo_url"`
	SessionID string `json:"session_id"`
	Owner     string `json:"owner"`
	Repo      string `json:"repo"`
}

type AnalyzeRequest struct {
	SessionID string `json:"session_id"`
	RepoURL   string `json:"repo_url"`
	Owner     string `json:"owner"`
	Repo      string `json:"repo"`
}

type Preferences struct {
	Style  string   `json:"style"`
	Topics []string `json:"topics"`
	Images []string `json:"images"`
}

type PreferencesRequest struct {
	SessionID   string      `json:"session_id"`
	Preferences Preferences `json:"preferences"`
}

type GenerateRequest struct {
	SessionID string `json:"session_id"`
	RepoURL   string `json:"repo_url"`
}

// ChatRequest omits selected_text when the whole document is being revised.
type ChatRequest struct {
	SessionID     string `json:"session_id"`
	Message       string `json:"message"`
	CurrentReadme string `json:"current_readme"`
	SelectedText  string `json:"selected_text,omitempty"`
}

type PushRequest struct {
	SessionID     string `json:"session_id"`
	ReadmeContent string `json:"readme_content"`
	CommitMessage string `json:"commit_message"`
}

// Responses.

type GenerateResponse struct {
	Markdown string `json:"markdown"`
}

type ChatResponse struct {
	Success       *bool  `json:"success,omitempty"`
	RevisedReadme string `json:"revised_readme"`
}

type PushResponse struct {
	Success   *bool  `json:"success,omitempty"`
	CommitURL string `json:"commit_url,omitempty"`
	Error     string `json:"error,omitempty"`
}
