package tutor

import (
	"fmt"
	"strings"

	"ayaka/internal/domain"
	"ayaka/internal/ledger"
	"ayaka/internal/roster"
)

// promptTurns is how many context turns the prompt quotes verbatim.
const promptTurns = 5

// BuildPrompt assembles the full generation prompt: persona, user profile,
// recent conversation, and the current message.
func BuildPrompt(botName string, id *domain.Identity, rec *domain.ProgressRecord, history []domain.ConversationTurn, message string, kind domain.ChatKind, ros *roster.Roster) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are %s, a friendly AI assistant with expertise in cryptocurrency, stock trading, and general conversation. Your name is %s and you should introduce yourself as such when appropriate.\n", botName, botName)

	if kind.IsGroup() {
		b.WriteString("\nIMPORTANT: You are in a group chat with friends. Remember the context of group conversations between:\n")
		for _, line := range groupRosterLines(ros) {
			b.WriteString(line)
			b.WriteByte('\n')
		}
		b.WriteString("\nWhen they reference previous conversations or inside jokes, acknowledge them. Be part of their friend group while maintaining your helpful nature.\n")
	}

	b.WriteString("\nCurrent User Information:\n")
	fmt.Fprintf(&b, "- Name: %s\n", id.DisplayName)
	fmt.Fprintf(&b, "- Learning Progress: %d%% complete\n", rec.OverallScore)
	fmt.Fprintf(&b, "- Completed Modules: %d\n", len(rec.CompletedModules))
	fmt.Fprintf(&b, "- Recent Topics: %s\n", strings.Join(rec.RecentTopics, ", "))

	b.WriteString("\nRecent Conversation History:\n")
	b.WriteString(formatHistory(history))

	fmt.Fprintf(&b, "\nCurrent Message: %s\n", message)

	b.WriteString(`
Guidelines:
1. For crypto/stocks topics: Provide accurate, educational information with safety-focused advice
2. For general conversation: Be helpful, engaging, and supportive on any topic
3. Remember context from previous conversations (both group and individual)
4. Be encouraging and maintain a conversational, friendly tone
5. You can discuss anything - from crypto and stocks to daily life, hobbies, technology, or any other topics
6. In group chats, acknowledge the friend dynamics and shared conversations
7. Always prioritize helpful, accurate responses

Please respond considering the conversation history and context.
`)

	return b.String()
}

// groupRosterLines lists the curated group members for the persona block.
func groupRosterLines(ros *roster.Roster) []string {
	var admins, users []string
	for _, e := range rosterEntries(ros) {
		line := fmt.Sprintf("- %s (@%s)", e.Name, strings.TrimPrefix(e.Handle, "@"))
		if e.Role == domain.RoleAdmin {
			admins = append(admins, line+" (bot owner/admin)")
		} else {
			users = append(users, line)
		}
	}
	return append(admins, users...)
}

func rosterEntries(ros *roster.Roster) []roster.Entry {
	if ros == nil {
		return nil
	}
	return ros.Entries()
}

// formatHistory quotes the last few turns, one exchange per pair of lines.
func formatHistory(history []domain.ConversationTurn) string {
	if len(history) == 0 {
		return "No previous conversations\n"
	}
	if len(history) > promptTurns {
		history = history[len(history)-promptTurns:]
	}
	return ledger.FormatTurns(history)
}
