package rag

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/kailas-cloud/researchrag/internal/domain/block"
	"github.com/kailas-cloud/researchrag/internal/domain/chat"
)

// Opening lines identify each prompt kind.
const (
	intentHeader         = "You route questions for an architecture firm's research knowledge base."
	relevanceHeader      = "You judge which research blocks answer a question."
	synthesisHeader      = "You answer questions using an architecture firm's research."
	deepHeader           = "You write a deeper follow-up analysis of an earlier answer."
	conversationalHeader = "You are the research assistant of an architecture firm."
)

const (
	intentHistoryTurns    = 4
	synthesisHistoryTurns = 6
)

func writeHistory(b *strings.Builder, history []chat.Message, n int) {
	turns := chat.Tail(history, n)
	if len(turns) == 0 {
		return
	}
	b.WriteString("\nRecent conversation:\n")
	for _, m := range turns {
		fmt.Fprintf(b, "%s: %s\n", m.Role, m.Content)
	}
}

func intentPrompt(query string, history []chat.Message, topics []string) string {
	var b strings.Builder
	b.WriteString(intentHeader)
	b.WriteString("\n\nTopics the knowledge base covers:\n")
	for _, t := range topics {
		b.WriteString("- " + t + "\n")
	}
	writeHistory(&b, history, intentHistoryTurns)
	fmt.Fprintf(&b, "\nUser message: %s\n", query)
	b.WriteString(`
Classify the message. Use "research_query" when it asks about findings the research may cover,
"general_design" for general architecture questions, and "conversational" for greetings,
thanks or small talk. Extract the key search terms.

Respond with JSON only:
{"topic": "...", "intent": "research_query|conversational|general_design", "searchTerms": ["..."], "relatedTopics": ["..."], "contextSummary": "..."}`)
	return b.String()
}

type blockProjection struct {
	ID          string   `json:"id"`
	Type        string   `json:"type"`
	Summary     string   `json:"summary"`
	Conclusions []string `json:"conclusions"`
}

func relevancePrompt(query string, blocks []block.Block) string {
	proj := make([]blockProjection, len(blocks))
	for i := range blocks {
		proj[i] = blockProjection{
			ID:          blocks[i].ID,
			Type:        string(blocks[i].Type),
			Summary:     blocks[i].Summary,
			Conclusions: blocks[i].Conclusions,
		}
	}
	// a slice of plain strings and structs always marshals
	candidates, _ := json.MarshalIndent(proj, "", "  ")

	var b strings.Builder
	b.WriteString(relevanceHeader)
	fmt.Fprintf(&b, "\n\nQuestion: %s\n\nCandidate blocks:\n%s\n", query, candidates)
	b.WriteString(`
Pick the blocks that directly help answer the question. A "section" block stands for the
whole chapter under it.

Respond with JSON only:
{"relevant": true, "relevantBlockIds": ["..."], "reasoning": "..."}`)
	return b.String()
}

func writeEvidence(b *strings.Builder, blocks []block.Block, sources []block.Source) {
	fmt.Fprintf(b, "\nProjects: %s\n", strings.Join(block.ProjectIDs(blocks), ", "))

	b.WriteString("\nResearch:\n")
	for i := range blocks {
		bl := &blocks[i]
		fmt.Fprintf(b, "\n--- %s (%s)\n%s\n", bl.ID, bl.Type, bl.SearchableText)
		for _, c := range bl.Conclusions {
			b.WriteString("* " + c + "\n")
		}
		if len(bl.SourceIDs) > 0 {
			ids := make([]string, len(bl.SourceIDs))
			for j, id := range bl.SourceIDs {
				ids[j] = strconv.Itoa(id)
			}
			fmt.Fprintf(b, "Sources: %s\n", strings.Join(ids, ", "))
		}
	}

	if len(sources) > 0 {
		b.WriteString("\nAvailable sources:\n")
		for _, src := range sources {
			fmt.Fprintf(b, "[%d] %s\n", src.ID, src.Citation())
		}
	}
}

const answerStyle = `
Answer conversationally in a few short paragraphs, not as a report. Cite sources inline with
their ids in square brackets, like [3] or [3, 7]. Only cite ids from the available sources.
If the research does not cover something, say so.`

func synthesisPrompt(query string, blocks []block.Block, sources []block.Source, history []chat.Message) string {
	var b strings.Builder
	b.WriteString(synthesisHeader)
	b.WriteString("\n")
	writeEvidence(&b, blocks, sources)
	writeHistory(&b, history, synthesisHistoryTurns)
	fmt.Fprintf(&b, "\nQuestion: %s\n", query)
	b.WriteString(answerStyle)
	return b.String()
}

func deepPrompt(
	query, previous string, blocks []block.Block, sources []block.Source, history []chat.Message,
) string {
	var b strings.Builder
	b.WriteString(deepHeader)
	b.WriteString("\n")
	writeEvidence(&b, blocks, sources)
	writeHistory(&b, history, synthesisHistoryTurns)
	fmt.Fprintf(&b, "\nQuestion: %s\n\nEarlier answer:\n%s\n", query, previous)
	b.WriteString(`
Go deeper than the earlier answer: compare findings across projects, point out tensions
and gaps, and draw out design implications.`)
	b.WriteString(answerStyle)
	return b.String()
}

func conversationalPrompt(query string, cc ConversationContext, topics []string) string {
	var b strings.Builder
	b.WriteString(conversationalHeader)
	b.WriteString("\n")
	if cc.Topic != "" {
		fmt.Fprintf(&b, "\nTopic: %s\n", cc.Topic)
	}
	if len(cc.RelatedTopics) > 0 {
		fmt.Fprintf(&b, "Related topics: %s\n", strings.Join(cc.RelatedTopics, ", "))
	}
	if cc.ContextSummary != "" {
		fmt.Fprintf(&b, "\nContext:\n%s\n", cc.ContextSummary)
	}
	writeHistory(&b, cc.History, intentHistoryTurns)
	fmt.Fprintf(&b, "\nUser message: %s\n\n", query)

	if cc.HasResearch {
		b.WriteString("Reply briefly and warmly. If the message is a question, help the user " +
			"sharpen it so the research can answer it.")
	} else {
		fmt.Fprintf(&b, "The research does not cover this directly. Acknowledge the interest, "+
			"share what general context you can, and suggest related topics the research covers: %s.",
			strings.Join(topics, ", "))
	}
	return b.String()
}
