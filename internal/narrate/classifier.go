package narrate

import (
	"strings"

	"github.com/ppiankov/narrascope/internal/model"
)

var (
	landmarkRoles = map[string]bool{
		"banner": true, "navigation": true, "main": true, "complementary": true,
		"contentinfo": true, "region": true, "search": true, "form landmark": true,
		"landmark": true,
	}
	formRoles = map[string]bool{
		"textbox": true, "edit": true, "text field": true, "searchbox": true,
		"checkbox": true, "radio": true, "radio button": true, "combobox": true,
		"listbox": true, "slider": true, "spinbutton": true, "switch": true,
	}
	interactiveRoles = map[string]bool{
		"button": true, "link": true, "menuitem": true, "menu button": true,
		"tab": true, "toggle button": true, "image link": true, "visited link": true,
	}
)

// Classify maps a narration phrase to its coarse category.
// Only the role segment (text before the first comma) is inspected so that
// page text such as "Main Menu" never changes the bucket.
func Classify(phrase string) model.Category {
	role := strings.ToLower(strings.TrimSpace(phrase))
	if idx := strings.Index(role, ","); idx >= 0 {
		role = strings.TrimSpace(role[:idx])
	}

	switch {
	case role == "heading" || strings.HasPrefix(role, "heading level"):
		return model.CategoryHeading
	case landmarkRoles[role] || strings.HasSuffix(role, " landmark"):
		return model.CategoryLandmark
	case formRoles[role]:
		return model.CategoryForm
	case interactiveRoles[role]:
		return model.CategoryInteractive
	default:
		return model.CategoryContent
	}
}
