package notes

// Panel is a static topic card shown beside every upload.
type Panel struct {
	Key     string   `json:"key"`
	Title   string   `json:"title"`
	Emoji   string   `json:"emoji"`
	Tone    string   `json:"tone"`
	Bullets []string `json:"bullets"`
}

var panels = []Panel{
	{
		Key:   "python",
		Title: "Python Notes",
		Emoji: "🐍",
		Tone:  "success",
		Bullets: []string{
			"Easy to learn and versatile",
			"Interpreted language",
			"Supports OOP, Functional, Procedural styles",
		},
	},
	{
		Key:   "data-science",
		Title: "Data Science Notes",
		Emoji: "📊",
		Tone:  "info",
		Bullets: []string{
			"Extract insights from data",
			"Tools: Pandas, Numpy, Matplotlib",
			"Steps: Collect → Clean → Analyze → Visualize",
		},
	},
	{
		Key:   "ai-ml",
		Title: "AI/ML Notes",
		Emoji: "🤖",
		Tone:  "warning",
		Bullets: []string{
			"AI: Machines that think",
			"ML: Machines that learn from data",
			"Algorithms: Regression, Classification, Clustering",
		},
	},
}

// Panels returns a copy of the static topic panels.
func Panels() []Panel {
	out := make([]Panel, len(panels))
	for i, p := range panels {
		p.Bullets = append([]string(nil), p.Bullets...)
		out[i] = p
	}
	return out
}
