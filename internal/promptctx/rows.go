package promptctx

import (
	"fmt"
	"strconv"
	"strings"

	"hoc_companion/internal/models"
)

func projectFromRow(row map[string]any) models.Project {
	return models.Project{
		ProjectID: stringValue(row["project_id"]),
		Name:      stringValue(row["project_name"]),
		Year:      intValue(row["year"]),
	}
}

func assetFromRow(row map[string]any) models.Asset {
	return models.Asset{
		ProjectName:     stringValue(row["project_name"]),
		ProjectYear:     intValue(row["year"]),
		Kind:            stringValue(row["asset_kind"]),
		Content:         stringValue(row["asset_content"]),
		Language:        stringValue(row["language"]),
		FileName:        stringValue(row["file_name"]),
		Description:     stringValue(row["description"]),
		Version:         stringValue(row["version"]),
		DocumentContent: stringValue(row["document_content"]),
		CampaignContext: stringValue(row["campaign_context"]),
	}
}

// stringValue renders a column value; NULL becomes ""
func stringValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}

// intValue converts numeric column values; anything unparsable is 0
func intValue(v any) int {
	switch t := v.(type) {
	case int:
		return t
	case int32:
		return int(t)
	case int64:
		return int(t)
	case float64:
		return int(t)
	case string:
		n, _ := strconv.Atoi(strings.TrimSpace(t))
		return n
	case []byte:
		n, _ := strconv.Atoi(strings.TrimSpace(string(t)))
		return n
	default:
		return 0
	}
}
