package repository

// Table names used by the SQLite repositories.
const (
	tableUsers            = "users"
	tableExternalLinks    = "external_links"
	tableRepositories     = "repositories"
	tableLinkedInProfiles = "linkedin_profiles"
	tableProjectAnalyses  = "project_analyses"
)
