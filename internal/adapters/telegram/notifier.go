package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode/utf8"

	tg "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// MaxMessageLength is Telegram's limit on message text, in characters.
const MaxMessageLength = 4096

// Notifier posts HTML-formatted text to a chat. Long text goes out as the
// chunks of Split(html, MaxMessageLength); the first skip chunks are taken
// as already delivered, so a retry resumes where the last attempt stopped.
// delivered counts the chunks sent so far, skip included, and is valid
// even when err is not nil.
type Notifier interface {
	Notify(ctx context.Context, chatID int64, html string, skip int) (messageID string, delivered int, err error)
}

// Bot is the subset of *tg.BotAPI the notifier uses.
type Bot interface {
	Send(c tg.Chattable) (tg.Message, error)
}

// BotNotifier sends digests through the Telegram Bot API.
type BotNotifier struct {
	bot Bot
}

// NewBotNotifier connects to the Bot API with token.
// PRE: token is a valid bot token
// POST: Returns a notifier, or an error if the token is rejected
func NewBotNotifier(token string) (*BotNotifier, error) {
	bot, err := tg.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram login failed: %w", err)
	}
	slog.Info("telegram_connected", "bot", bot.Self.UserName)
	return &BotNotifier{bot: bot}, nil
}

// NewWithBot wraps an existing bot client.
func NewWithBot(bot Bot) *BotNotifier {
	return &BotNotifier{bot: bot}
}

// Notify sends the chunks of html after the first skip to chatID. The
// returned ID is that of the last message sent.
func (n *BotNotifier) Notify(ctx context.Context, chatID int64, html string, skip int) (string, int, error) {
	chunks := Split(html, MaxMessageLength)
	delivered := min(max(skip, 0), len(chunks))
	var lastID int
	for _, chunk := range chunks[delivered:] {
		if err := ctx.Err(); err != nil {
			return "", delivered, err
		}
		m := tg.NewMessage(chatID, chunk)
		m.ParseMode = tg.ModeHTML
		m.DisableWebPagePreview = true
		sent, err := n.bot.Send(m)
		if err != nil {
			slog.Error("telegram_send_failed", "chat_id", chatID, "chunk", delivered+1, "chunks", len(chunks), "error", err)
			return "", delivered, fmt.Errorf("telegram send failed: %w", err)
		}
		lastID = sent.MessageID
		delivered++
	}
	slog.Info("telegram_sent", "chat_id", chatID, "message_id", lastID, "chunks", len(chunks), "skipped", skip)
	return strconv.Itoa(lastID), delivered, nil
}

// Split breaks text into chunks of at most limit characters, preferring
// line boundaries. An over-long line is cut between HTML tags and entities,
// and an element that fits in one chunk, like <a href="...">...</a>, is
// never split. Only a single tag longer than limit is cut by character.
// POST: every chunk has at most limit characters
func Split(text string, limit int) []string {
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}
	var chunks []string
	var cur strings.Builder
	curLen := 0
	flush := func() {
		if curLen > 0 {
			chunks = append(chunks, strings.TrimRight(cur.String(), "\n"))
			cur.Reset()
			curLen = 0
		}
	}
	add := func(piece string, n int) {
		if curLen+n > limit {
			flush()
		}
		cur.WriteString(piece)
		curLen += n
	}
	for _, line := range strings.SplitAfter(text, "\n") {
		n := utf8.RuneCountInString(line)
		if n <= limit {
			add(line, n)
			continue
		}
		for _, atom := range htmlAtoms(line, limit) {
			n := utf8.RuneCountInString(atom)
			for n > limit {
				runes := []rune(atom)
				flush()
				chunks = append(chunks, string(runes[:limit]))
				atom = string(runes[limit:])
				n -= limit
			}
			add(atom, n)
		}
	}
	flush()
	return chunks
}

// htmlAtoms cuts s into the smallest pieces Split may break between: a
// whole element when it fits in limit, otherwise a tag, an entity or a
// single character.
func htmlAtoms(s string, limit int) []string {
	var atoms []string
	for s != "" {
		n := atomLen(s, limit)
		atoms = append(atoms, s[:n])
		s = s[n:]
	}
	return atoms
}

// atomLen returns the byte length of the leading unbreakable piece of s.
func atomLen(s string, limit int) int {
	switch s[0] {
	case '<':
		end := strings.IndexByte(s, '>')
		if end < 0 {
			break
		}
		if name := openTagName(s[:end+1]); name != "" {
			closing := "</" + name + ">"
			if i := strings.Index(s, closing); i >= 0 {
				if el := s[:i+len(closing)]; utf8.RuneCountInString(el) <= limit {
					return len(el)
				}
			}
		}
		return end + 1
	case '&':
		if end := strings.IndexByte(s, ';'); end > 1 && end <= 10 && !strings.ContainsAny(s[1:end], " <&") {
			return end + 1
		}
	}
	_, size := utf8.DecodeRuneInString(s)
	return size
}

// openTagName returns the lower-cased element name of an opening tag, or
// "" for closing and self-closing tags.
func openTagName(tag string) string {
	if len(tag) < 3 || tag[1] == '/' || tag[1] == '!' || strings.HasSuffix(tag, "/>") {
		return ""
	}
	name := tag[1 : len(tag)-1]
	if i := strings.IndexAny(name, " \t\n"); i >= 0 {
		name = name[:i]
	}
	return strings.ToLower(name)
}

// NoopNotifier logs instead of sending.
type NoopNotifier struct{}

// Notify logs the message length and reports every chunk delivered.
func (NoopNotifier) Notify(_ context.Context, chatID int64, html string, skip int) (string, int, error) {
	chunks := len(Split(html, MaxMessageLength))
	slog.Info("noop_telegram_send", "chat_id", chatID, "chars", utf8.RuneCountInString(html), "chunks", chunks, "skipped", skip)
	return "noop", chunks, nil
}
