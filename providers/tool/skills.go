package tool

import (
	"context"
	"strings"
	"text/template"
)

const (
	NameGenerateHook    = "generate_hook"
	NameScriptFormatter = "script_formatter"
	NameTrendAnalyzer   = "trend_analyzer"
	NameWebSearch       = "web_search"
)

const (
	defaultHookStyle      = "suspense"
	defaultHookCount      = 5
	defaultScriptDuration = 60
	defaultScriptFormat   = "standard storyboard"
	defaultTrendRegion    = "China"
)

// --- generate_hook ---

type hookInput struct {
	Topic string `json:"topic" jsonschema:"description=Video topic or core content"`
	Style string `json:"style,omitempty" jsonschema:"description=Hook style,enum=suspense,enum=pain point,enum=data,enum=rhetorical question,enum=story"`
	Count int    `json:"count,omitempty" jsonschema:"description=Number of hooks (default 5)"`
}

func (in *hookInput) validate() error {
	if err := requireField("topic", in.Topic); err != nil {
		return err
	}
	if in.Style == "" {
		in.Style = defaultHookStyle
	}
	if in.Count <= 0 {
		in.Count = defaultHookCount
	}
	return nil
}

var hookTemplate = template.Must(template.New(NameGenerateHook).Parse(`[Hook generation task]

Write {{.Count}} opening hooks for the first 3 seconds of a TikTok video.

Topic: {{.Topic}}
Style: {{.Style}}

Requirements:
1. Keep each hook under 15 words
2. Grab attention within 3 seconds
3. Spark curiosity or recognition
4. Work as voice-over or on-screen caption
5. Avoid exaggerated clickbait

Output format:
1. [Hook] - one line on why it works
2. ...

Start generating:`))

func newHookTool() GenericTool {
	return NewTool(NameGenerateHook, func(_ context.Context, in hookInput) string {
		return render(hookTemplate, in)
	}, WithDescription("Generate attention-grabbing opening hooks for the first 3 seconds of a TikTok video to improve completion rate"))
}

// --- script_formatter ---

type scriptInput struct {
	Content  string `json:"content" jsonschema:"description=Copy or idea to format"`
	Duration int    `json:"duration,omitempty" jsonschema:"description=Target video length in seconds (default 60)"`
	Format   string `json:"format,omitempty" jsonschema:"description=Output format,enum=standard storyboard,enum=concise,enum=detailed"`
}

func (in *scriptInput) validate() error {
	if err := requireField("content", in.Content); err != nil {
		return err
	}
	if in.Duration <= 0 {
		in.Duration = defaultScriptDuration
	}
	if in.Format == "" {
		in.Format = defaultScriptFormat
	}
	return nil
}

var scriptTemplate = template.Must(template.New(NameScriptFormatter).Parse(`[Storyboard script task]

Turn the following content into a TikTok script in {{.Format}} format:

Original content:
{{.Content}}

Target length: about {{.Duration}} seconds

Use this table layout:

| # | Time | Visuals | Voice-over / captions | Notes |
|---|------|---------|-----------------------|-------|
| 1 | 0-3s | Opening shot | Hook | Grab attention |
| 2 | 3-10s | ... | ... | ... |

Requirements:
1. A strong hook in the first 3 seconds
2. Tight pacing with moderate information density
3. A clear call to action at the end
4. Note the footage or effects each shot needs

Start generating:`))

func newScriptTool() GenericTool {
	return NewTool(NameScriptFormatter, func(_ context.Context, in scriptInput) string {
		return render(scriptTemplate, in)
	}, WithDescription("Turn copy or an idea into a TikTok storyboard script with visuals, voice-over and timing"))
}

// --- trend_analyzer ---

type trendInput struct {
	Category string `json:"category" jsonschema:"description=Content category,enum=food,enum=fashion,enum=tech,enum=comedy,enum=tutorial,enum=lifestyle,enum=gaming,enum=other"`
	Region   string `json:"region,omitempty" jsonschema:"description=Target region,enum=China,enum=United States,enum=Southeast Asia,enum=Europe,enum=Global"`
}

func (in *trendInput) validate() error {
	if err := requireField("category", in.Category); err != nil {
		return err
	}
	if in.Region == "" {
		in.Region = defaultTrendRegion
	}
	return nil
}

var trendTemplate = template.Must(template.New(NameTrendAnalyzer).Parse(`[Trend analysis task]

Analyze the current TikTok trends for {{.Category}} content in {{.Region}}.

Cover these dimensions:

## 1. Popular formats
- Video types that are trending
- Popular shooting techniques
- Popular editing styles

## 2. Viral elements
- Common hook patterns
- Trending background music styles
- Popular effects or filters

## 3. Creator advice
- Entry points for beginners
- Ways to stand out
- Pitfalls to avoid

## 4. Directions to explore
- 3-5 content directions worth imitating
- A short note on each

Base the analysis on your own knowledge (this is not live data and is for reference only):`))

func newTrendTool() GenericTool {
	return NewTool(NameTrendAnalyzer, func(_ context.Context, in trendInput) string {
		return render(trendTemplate, in)
	}, WithDescription("Analyze popular TikTok trends and give content creation advice"))
}

// render executes a skill template. The templates only reference fields of
// their own input type, so execution cannot fail at runtime.
func render(tmpl *template.Template, data any) string {
	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "Failed to render instructions: " + err.Error()
	}
	return sb.String()
}
