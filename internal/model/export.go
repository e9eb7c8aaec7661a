package model

// AppInfo identifies the application in exported transcripts.
type AppInfo struct {
	Name       string `json:"name"`
	Version    string `json:"version"`
	Created    string `json:"created,omitempty"`
	Author     string `json:"author,omitempty"`
	Repository string `json:"repository,omitempty"`
}

// ChatExport is the downloadable transcript document.
type ChatExport struct {
	AppInfo      AppInfo   `json:"app_info"`
	Timestamp    string    `json:"timestamp"`
	Messages     []Message `json:"messages"`
	SystemPrompt string    `json:"system_prompt"`
}
