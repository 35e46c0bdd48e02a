package phases

import (
	"fmt"
	"strings"

	"github.com/matzehuels/uimigrate/pkg/pipeline"
)

// Role instructions sent to the transform capability. Each starts with a
// distinct phrase so logs, cache keys and test fakes can tell them apart.
const (
	InstructionExtract = `Extract a migration blueprint from the ExtJS source in the payload.
You are an ExtJS expert. Identify the data model, the store and the grid columns.
Respond with a JSON object with the keys "feature_name", "model", "store" and "columns".

Guidelines:
- Flag parts that belong in a shared module (password fields, generic grids).
- List shared utilities (interfaces, enums, DTOs) under "shared_utilities".
- Keep view, style and logic concerns apart.`

	InstructionValidate = `Review the blueprint in the payload and return it completed.
Custom column renderers must be captured as logic strings.
Point out reusable component candidates and keep data models apart from
view configuration. Respond with the full blueprint as JSON.`

	InstructionArchitecture = `Harden the Angular code in the payload for production.
Enforce strict typing, error handling and dependency injection.
No inline templates or styles. Reusable pieces belong to shared modules and
global styles belong in "common_scss". Respond with the same JSON keys.`

	InstructionRefineBlueprint = `Refine the blueprint in the payload using the review feedback.
You are an ExtJS expert. Address every issue and recommendation, paying most
attention to the unmet criteria. Respond with the complete blueprint as JSON.`

	InstructionRefineCode = `Refine the Angular code in the payload using the review feedback.
You are an Angular architect. Address every issue and recommendation, paying
most attention to the unmet criteria. Respond with the same JSON keys as the
input code.`

	// ConvertPrefix starts every conversion instruction.
	ConvertPrefix = "Convert the blueprint in the payload to Angular"
)

const convertTemplate = ConvertPrefix + ` %s.
Use %s for data grids and standalone components with signals throughout.
Respond with a JSON object with exactly these string keys:
"feature_name", "interface", "service", "component_ts", "component_html",
"component_scss", "common_scss".

Rules:
- Templates and styles live in their own files. Never use inline template or styles.
- Component styles go in "component_scss", reusable styles in "common_scss".
- Reusable parts are marked for the shared module.`

// ConvertInstruction renders the conversion instruction for a framework
// version and grid library.
func ConvertInstruction(angularVersion, uiFramework string) string {
	return fmt.Sprintf(convertTemplate, angularVersion, uiFramework)
}

var scoreRoles = map[pipeline.Phase]string{
	pipeline.PhaseAnalysis:   "an ExtJS expert judging blueprint quality",
	pipeline.PhaseConversion: "an Angular architect judging code quality",
	pipeline.PhaseStorage:    "an Angular file structure expert judging the file deployment",
}

// ScorePrefix starts every scoring instruction for phase.
func ScorePrefix(phase pipeline.Phase) string {
	return fmt.Sprintf("Score the %s artifact in the payload", phase)
}

// ScoreInstruction asks for a 0-100 score per criterion of w, plus issues
// and recommendations.
func ScoreInstruction(phase pipeline.Phase, w pipeline.Weights) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s as %s.\n", ScorePrefix(phase), scoreRoles[phase])
	b.WriteString("Rate each criterion from 0 to 100:\n")
	for _, c := range w.Criteria() {
		fmt.Fprintf(&b, "- %s\n", c)
	}
	b.WriteString(`Respond with JSON: {"scores": {"<criterion>": <number>, ...}, "issues": [...], "recommendations": [...]}.`)
	return b.String()
}
