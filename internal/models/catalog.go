package models

//
// Marketing catalog (projects and assets tables)
//

// Project is a marketing campaign. ProjectID is the business identifier
// (e.g. "8240-003179"), Name is usually Dutch.
type Project struct {
	ProjectID string `db:"project_id" json:"project_id"`
	Name      string `db:"project_name" json:"project_name"`
	Year      int    `db:"year" json:"year"`
}

// Asset is a file belonging to a project, joined with the owning project's
// name and year.
type Asset struct {
	ProjectName     string `db:"project_name" json:"project_name"`
	ProjectYear     int    `db:"year" json:"year"`
	Kind            string `db:"asset_kind" json:"asset_kind"`
	Content         string `db:"asset_content" json:"asset_content"`
	Language        string `db:"language" json:"language,omitempty"`
	FileName        string `db:"file_name" json:"file_name,omitempty"`
	Description     string `db:"description" json:"description,omitempty"`
	Version         string `db:"version" json:"version,omitempty"`
	DocumentContent string `db:"document_content" json:"document_content,omitempty"`
	CampaignContext string `db:"campaign_context" json:"campaign_context,omitempty"`
}

// CatalogStats holds the aggregate counts of the catalog.
type CatalogStats struct {
	TotalProjects int `db:"total_projects" json:"total_projects"`
	TotalAssets   int `db:"total_assets" json:"total_assets"`
}
