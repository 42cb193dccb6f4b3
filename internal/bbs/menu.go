package bbs

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/mgutz/ansi"
	"github.com/olekukonko/tablewriter"
)

var (
	titleColor  = ansi.ColorFunc("cyan+bh")
	keyColor    = ansi.ColorFunc("yellow+bh")
	promptColor = ansi.ColorFunc("green+h")
)

type menuItem struct {
	key   string
	label string
}

var mainMenu = []menuItem{
	{"U", "User list"},
	{"W", "Who is online"},
	{"C", "Chat message"},
	{"T", "Terminal info"},
	{"G", "Goodbye"},
}

func (s *Session) showMenu() {
	s.printf("\n%s\n", titleColor("Main Menu"))
	for _, item := range mainMenu {
		s.printf("  [%s] %s\n", keyColor(item.key), item.label)
	}
}

func (s *Session) handleMenu(key string) {
	if key == "" || key[0] < 0x20 || key[0] > 0x7e {
		return
	}
	s.printf("%s\n", key)

	switch strings.ToUpper(key) {
	case "U":
		s.showUsers()
	case "W":
		s.showOnline()
	case "C":
		s.enter(StateChat)
		return
	case "T":
		s.showTerminal()
	case "G":
		s.enter(StateGoodbye)
		return
	case "?", "M":
		s.showMenu()
	default:
		s.printf("Unknown command %q. Press ? for the menu.\n", key)
	}
	s.prompt()
}

func (s *Session) showUsers() {
	users := s.sys.Users.All()

	table := tablewriter.NewWriter(s.conn)
	table.SetHeader([]string{"ID", "Username", "Type", "Last seen"})
	table.SetBorder(false)
	table.SetCaption(true, fmt.Sprintf("Total: %d users.", len(users)))
	for _, u := range users {
		table.Append([]string{
			strconv.FormatUint(uint64(u.ID), 10),
			u.Username,
			u.Type.String(),
			humanize.Time(u.LastSeen),
		})
	}
	table.Render()
}

func (s *Session) showOnline() {
	online := s.sys.Room.Clients()

	table := tablewriter.NewWriter(s.conn)
	table.SetHeader([]string{"Node", "Username", "From", "On since"})
	table.SetBorder(false)
	table.SetCaption(true, fmt.Sprintf("Total: %d online.", len(online)))
	for _, c := range online {
		table.Append([]string{
			strconv.Itoa(c.ID),
			c.Username,
			c.Address,
			humanize.Time(c.Since),
		})
	}
	table.Render()
}

func (s *Session) showTerminal() {
	t := s.conn.Terminal
	speed := "unknown"
	if s.conn.Speed > 0 {
		speed = humanize.Comma(int64(s.conn.Speed)) + " bps"
	}
	model := t.Model
	if model == "" {
		model = "unknown"
	}
	s.printf("Terminal: %s (model %s)\n", t.Type, model)
	s.printf("Size:     %dx%d\n", t.Width, t.Height)
	s.printf("ANSI:     %t\n", t.ANSI)
	s.printf("Speed:    %s\n", speed)
	s.printf("Kind:     %s\n", s.conn.Kind())
}
