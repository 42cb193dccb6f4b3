package bbs

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ledzpl/vbbs/internal/buffer"
	"github.com/ledzpl/vbbs/internal/conn"
	"github.com/ledzpl/vbbs/internal/terminal"
	"github.com/ledzpl/vbbs/internal/user"
)

// State is a step of the session flow.
type State uint8

const (
	StateIdentify State = iota
	StateUsername
	StatePassword
	StateAuthenticate
	StateRegisterName
	StateRegisterEmail
	StateRegisterPassword
	StateRegisterConfirm
	StateMenu
	StateChat
	StateGoodbye
)

var stateNames = [...]string{
	"identify", "username", "password", "authenticate",
	"register-name", "register-email", "register-password", "register-confirm",
	"menu", "chat", "goodbye",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// Session drives one connection through identify, login and the menu. It
// receives the connection's negotiation and echo events. Like the
// connection, it belongs to the goroutine serving it.
type Session struct {
	sys    *System
	conn   *conn.Conn
	logger *slog.Logger

	state    State
	attempts int
	username string
	password string
	user     user.User
	client   *Client

	register struct {
		name     string
		email    string
		password string
	}

	// masked echoes asterisks instead of the typed characters.
	masked bool
	typed  int
}

var _ buffer.Handler = (*Session)(nil)

// NewSession attaches a session to c.
func NewSession(sys *System, c *conn.Conn) *Session {
	s := &Session{
		sys:    sys,
		conn:   c,
		logger: c.Logger(),
	}
	c.SetHandler(s)
	return s
}

func (s *Session) State() State {
	return s.state
}

// User returns the logged-in account, if any.
func (s *Session) User() (user.User, bool) {
	return s.user, s.user.ID != 0
}

// Start sends the identify preamble.
func (s *Session) Start() {
	s.logger.Info("bbs: session started", "address", s.conn.Address())
	s.enter(StateIdentify)
}

// WindowSize records a NAWS report.
func (s *Session) WindowSize(width, height int) {
	s.conn.Terminal.SetSize(width, height)
}

// TerminalType records the announced terminal type and output charset.
func (s *Session) TerminalType(name string) {
	s.conn.Terminal.SetType(name)
}

func (s *Session) ConnectionSpeed(bps int) {
	s.conn.Speed = bps
}

// Echo repeats typed input in line mode. The server negotiates WILL ECHO,
// so the client does not echo locally.
func (s *Session) Echo(c byte) {
	if s.conn.Input().Mode() != buffer.LineMode {
		return
	}
	switch {
	case c == '\r':
		s.typed = 0
		s.write("\n")
	case c == 0x08 || c == 0x7f:
		if s.typed > 0 {
			s.typed--
			s.write("\b \b")
		}
	case c >= 0x20 && c < 0x7f:
		s.typed++
		if s.masked {
			s.write("*")
		} else {
			s.write(string(c))
		}
	}
}

// Handle processes one ready input unit in the current state.
func (s *Session) Handle(unit string) {
	switch s.state {
	case StateIdentify:
		s.handleIdentify(unit)
	case StateUsername:
		s.handleUsername(strings.TrimSpace(unit))
	case StatePassword:
		s.password = unit
		s.enter(StateAuthenticate)
	case StateRegisterName:
		s.handleRegisterName(strings.TrimSpace(unit))
	case StateRegisterEmail:
		s.handleRegisterEmail(strings.TrimSpace(unit))
	case StateRegisterPassword:
		s.handleRegisterPassword(unit)
	case StateRegisterConfirm:
		s.handleRegisterConfirm(unit)
	case StateMenu:
		s.handleMenu(unit)
	case StateChat:
		s.handleChat(strings.TrimSpace(unit))
	}
}

// Deliver copies queued room messages to the output.
func (s *Session) Deliver() {
	if s.client == nil {
		return
	}
	for {
		select {
		case msg, ok := <-s.client.Inbox():
			if !ok {
				s.client = nil
				return
			}
			s.printf("\r%s%s\n", terminal.ClearLine, msg)
			s.prompt()
		default:
			return
		}
	}
}

// Close leaves the room and closes the connection.
func (s *Session) Close() error {
	if s.client != nil {
		s.sys.Room.RemoveClient(s.conn.ID())
		s.client = nil
	}
	s.logger.Info("bbs: session ended", "user", s.user.Username, "state", s.state.String())
	return s.conn.Close()
}

func (s *Session) enter(next State) {
	s.logger.Debug("bbs: state", "from", s.state.String(), "to", next.String())
	s.state = next
	s.masked = next == StatePassword || next == StateRegisterPassword || next == StateRegisterConfirm
	s.typed = 0

	switch next {
	case StateIdentify:
		s.setMode(buffer.LineMode)
		if err := terminal.SendIdentify(s.conn.Output()); err != nil {
			s.logger.Warn("bbs: identify dropped", "err", err)
		}
		return
	case StateAuthenticate:
		s.authenticate()
		return
	case StateMenu:
		s.setMode(buffer.CharacterMode)
		s.showMenu()
	case StateGoodbye:
		s.goodbye()
		return
	default:
		s.setMode(buffer.LineMode)
	}
	s.prompt()
}

func (s *Session) prompt() {
	switch s.state {
	case StateUsername:
		s.printf("\nUsername (or NEW): ")
	case StatePassword:
		s.printf("Password: ")
	case StateRegisterName:
		s.printf("\nNew username: ")
	case StateRegisterEmail:
		s.printf("Email address: ")
	case StateRegisterPassword:
		s.printf("Choose a password (%d+ characters): ", user.MinPasswordLength)
	case StateRegisterConfirm:
		s.printf("Confirm password: ")
	case StateMenu:
		s.printf("%s ", promptColor("Command:"))
	case StateChat:
		s.printf("Message (blank to cancel): ")
	}
}

func (s *Session) setMode(mode buffer.Mode) {
	if in := s.conn.Input(); in.Mode() != mode {
		in.SetMode(mode)
	}
}

func (s *Session) handleIdentify(line string) {
	found, err := terminal.CheckIdentifyResponse(s.conn, line, &s.conn.Terminal)
	if err != nil {
		s.logger.Warn("bbs: identify response dropped", "err", err)
	}
	s.logger.Info("bbs: terminal identified",
		"found", found,
		"type", s.conn.Terminal.Type,
		"model", s.conn.Terminal.Model,
		"ansi", s.conn.Terminal.ANSI,
		"width", s.conn.Terminal.Width,
		"height", s.conn.Terminal.Height,
	)
	s.printf("\n%s\n%s\n", titleColor(s.sys.Config.Server.Name), s.sys.Config.Server.Welcome)
	s.enter(StateUsername)
}

func (s *Session) handleUsername(name string) {
	switch {
	case name == "":
		s.prompt()
	case strings.EqualFold(name, "new"):
		if !s.sys.Config.Session.AllowRegistration {
			s.printf("Registration is closed.\n")
			s.prompt()
			return
		}
		s.enter(StateRegisterName)
	default:
		s.username = name
		s.enter(StatePassword)
	}
}

func (s *Session) authenticate() {
	u, err := s.sys.Users.Authenticate(s.username, s.password)
	s.password = ""
	if err != nil {
		s.attempts++
		s.logger.Info("bbs: login failed", "username", s.username, "attempt", s.attempts)
		s.printf("\nLogin incorrect.\n")
		if s.attempts >= s.sys.Config.Session.MaxLoginAttempts {
			s.printf("Too many failed attempts.\n")
			s.enter(StateGoodbye)
			return
		}
		s.enter(StateUsername)
		return
	}
	s.login(u)
}

func (s *Session) login(u user.User) {
	s.user = u
	s.conn.SetAuthenticated()
	s.client = s.sys.Room.AddClient(s.conn.ID(), u.Username, s.conn.Address())
	s.logger.Info("bbs: login", "user", u.Username, "id", u.ID)

	s.printf("\nWelcome, %s! %d caller(s) online.\n", u.Username, s.sys.Room.ClientCount())
	s.enter(StateMenu)
}

func (s *Session) handleRegisterName(name string) {
	switch {
	case !user.ValidUsername(name):
		s.printf("Usernames are 1-%d characters without spaces.\n", user.MaxUsernameLength)
	case strings.EqualFold(name, "new"):
		s.printf("That name is reserved.\n")
	default:
		if _, err := s.sys.Users.ByName(name); err == nil {
			s.printf("That name is taken.\n")
			break
		}
		s.register.name = name
		s.enter(StateRegisterEmail)
		return
	}
	s.prompt()
}

func (s *Session) handleRegisterEmail(email string) {
	if len(email) > user.MaxEmailLength {
		s.printf("Email addresses are at most %d characters.\n", user.MaxEmailLength)
		s.prompt()
		return
	}
	s.register.email = email
	s.enter(StateRegisterPassword)
}

func (s *Session) handleRegisterPassword(password string) {
	if len(password) < user.MinPasswordLength {
		s.printf("Passwords need at least %d characters.\n", user.MinPasswordLength)
		s.prompt()
		return
	}
	s.register.password = password
	s.enter(StateRegisterConfirm)
}

func (s *Session) handleRegisterConfirm(password string) {
	if password != s.register.password {
		s.printf("Passwords do not match.\n")
		s.enter(StateRegisterPassword)
		return
	}

	u, err := s.sys.Users.Add(s.register.name, s.register.email, password, user.Regular)
	s.register.password = ""
	if err != nil {
		s.logger.Warn("bbs: registration failed", "username", s.register.name, "err", err)
		if errors.Is(err, user.ErrExists) {
			s.printf("That name is taken.\n")
			s.enter(StateRegisterName)
			return
		}
		s.printf("Registration failed.\n")
		s.enter(StateUsername)
		return
	}
	if err := s.sys.Users.Save(); err != nil {
		s.logger.Error("bbs: saving users failed", "err", err)
	}
	s.logger.Info("bbs: registered", "user", u.Username, "id", u.ID)
	s.printf("Account created.\n")
	s.login(u)
}

func (s *Session) handleChat(text string) {
	if text != "" && s.client != nil {
		msg := s.sys.Room.Broadcast(s.conn.ID(), text)
		s.printf("%s\n", msg)
	}
	s.enter(StateMenu)
}

func (s *Session) goodbye() {
	name := s.user.Username
	if name == "" {
		name = "caller"
	}
	s.printf("\nGoodbye, %s!\n", name)
	s.conn.Disconnect()
}

func (s *Session) printf(format string, args ...any) {
	if err := s.conn.Printf(format, args...); err != nil {
		s.logger.Debug("bbs: output dropped", "err", err)
	}
}

func (s *Session) write(text string) {
	if _, err := s.conn.Write([]byte(text)); err != nil {
		s.logger.Debug("bbs: echo dropped", "err", err)
	}
}
