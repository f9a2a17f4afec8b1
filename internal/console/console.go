// Package console implements the interactive terminal client: a numbered
// menu over the student records API that shows every HTTP exchange it makes.
// Input is read line by line, so sessions can be scripted through stdin.
package console

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/tbourn/student-records/internal/client"
	"github.com/tbourn/student-records/internal/domain"
	"github.com/tbourn/student-records/internal/sysutil"
)

// API is the subset of *client.Client the console drives.
type API interface {
	List(ctx context.Context) ([]domain.Student, *client.Exchange, error)
	Get(ctx context.Context, controlID string) (*domain.Student, *client.Exchange, error)
	Create(ctx context.Context, in client.CreateInput) (*client.Exchange, error)
	Update(ctx context.Context, controlID string, fields map[string]any) (*client.Exchange, error)
	Delete(ctx context.Context, controlID string) (*client.Exchange, error)
}

// Options tunes terminal output.
type Options struct {
	// Clear wipes the screen before each menu. Only useful on a TTY.
	Clear bool
	// Color enables ANSI styling.
	Color bool
}

// errQuit ends the session: the user chose exit or input ran out.
var errQuit = errors.New("quit")

// ANSI styles.
const (
	styleBold   = "1"
	styleCyan   = "36"
	styleGreen  = "32"
	styleYellow = "33"
	styleRed    = "31"
)

// Console is one interactive session.
type Console struct {
	api  API
	in   *bufio.Reader
	out  io.Writer
	opts Options
}

// New builds a session reading from in and writing to out.
func New(api API, in io.Reader, out io.Writer, opts Options) *Console {
	return &Console{api: api, in: bufio.NewReader(in), out: out, opts: opts}
}

// Run shows the menu until the user exits or input ends. Request failures
// are reported and the loop continues.
func (c *Console) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.clear()
		c.banner()
		c.menu()

		choice, err := c.choose()
		if err != nil {
			return quitErr(err)
		}

		c.clear()
		c.banner()
		switch choice {
		case 1:
			c.heading("ALL STUDENTS")
			c.listAll(ctx)
		case 2:
			c.heading("FIND STUDENT")
			err = c.findOne(ctx)
		case 3:
			c.heading("ADD STUDENT")
			err = c.add(ctx)
		case 4:
			c.heading("UPDATE STUDENT")
			err = c.update(ctx)
		case 5:
			c.heading("DELETE STUDENT")
			err = c.remove(ctx)
		case 6:
			c.println(c.style(styleCyan, "Goodbye!"))
			return nil
		}
		if err != nil {
			return quitErr(err)
		}

		if _, err := c.prompt("\nPress Enter to continue..."); err != nil {
			return quitErr(err)
		}
	}
}

func quitErr(err error) error {
	if errors.Is(err, errQuit) {
		return nil
	}
	return err
}

//
// Actions
//

func (c *Console) listAll(ctx context.Context) {
	items, ex, err := c.api.List(ctx)
	if c.reportExchange(ex, err) {
		return
	}
	if err != nil {
		c.println(c.style(styleRed, "The server could not list students."))
		return
	}
	c.table(items)
}

func (c *Console) findOne(ctx context.Context) error {
	id, err := c.prompt("Control number: ")
	if err != nil {
		return err
	}
	s, ex, err := c.api.Get(ctx, strings.TrimSpace(id))
	if c.reportExchange(ex, err) {
		return nil
	}
	if err != nil {
		c.println(c.style(styleRed, "Unsuccessful response from the server."))
		return nil
	}
	c.table([]domain.Student{*s})
	return nil
}

func (c *Console) add(ctx context.Context) error {
	var in client.CreateInput
	for _, f := range []struct {
		label string
		dst   *string
	}{
		{"Control number: ", &in.ControlID},
		{"First name(s): ", &in.FirstName},
		{"Paternal surname: ", &in.PaternalSurname},
		{"Maternal surname: ", &in.MaternalSurname},
	} {
		v, err := c.prompt(f.label)
		if err != nil {
			return err
		}
		*f.dst = v
	}
	sem, err := c.promptInt("Semester: ", nil)
	if err != nil {
		return err
	}
	in.Semester = sem

	ex, err := c.api.Create(ctx, in)
	if c.reportExchange(ex, err) {
		return nil
	}
	if ex.Status == http.StatusCreated {
		c.println("\n" + c.style(styleGreen, "Success:") + " student added.")
	} else {
		c.println("\n" + c.style(styleRed, "Could not add the student."))
	}
	return nil
}

func (c *Console) update(ctx context.Context) error {
	id, err := c.prompt("Control number to update: ")
	if err != nil {
		return err
	}
	id = strings.TrimSpace(id)

	cur, ex, err := c.api.Get(ctx, id)
	if ex != nil && ex.Status == 0 && err != nil {
		c.println(c.style(styleRed, "Error looking up the student: ") + err.Error())
		return nil
	}
	if err != nil {
		c.println(c.style(styleRed, "Error:") + fmt.Sprintf(" student '%s' was not found.", id))
		c.panel(ex)
		return nil
	}

	c.println("\n" + c.style(styleBold, "Current record:") + " " + cur.FullName())
	c.table([]domain.Student{*cur})
	c.println("\n" + c.style(styleGreen, "--- New values ---") + " (leave blank to keep)")

	changes := map[string]any{}
	for _, f := range []struct {
		label, key, current string
	}{
		{"First name", "firstName", cur.FirstName},
		{"Paternal surname", "paternalSurname", cur.PaternalSurname},
		{"Maternal surname", "maternalSurname", cur.MaternalSurname},
	} {
		v, err := c.prompt(fmt.Sprintf("%s [%s]: ", f.label, f.current))
		if err != nil {
			return err
		}
		if v = sysutil.FirstNonEmpty(v, f.current); v != f.current {
			changes[f.key] = v
		}
	}
	sem, err := c.promptInt(fmt.Sprintf("Semester [%d]: ", cur.Semester), &cur.Semester)
	if err != nil {
		return err
	}
	if sem != cur.Semester {
		changes["semester"] = sem
	}

	if len(changes) == 0 {
		c.println(c.style(styleYellow, "No changes made."))
		return nil
	}

	ex, err = c.api.Update(ctx, id, changes)
	if c.reportExchange(ex, err) {
		return nil
	}
	if ex.OK() {
		c.println("\n" + c.style(styleGreen, "Success:") + " student updated.")
	} else {
		c.println("\n" + c.style(styleRed, "Could not update the student."))
	}
	return nil
}

func (c *Console) remove(ctx context.Context) error {
	id, err := c.prompt("Control number to delete: ")
	if err != nil {
		return err
	}
	id = strings.TrimSpace(id)

	answer, err := c.prompt(fmt.Sprintf("Delete student '%s'? (y/n) [n]: ", id))
	if err != nil {
		return err
	}
	if !sysutil.IsTruthy(answer) {
		c.println(c.style(styleYellow, "Operation cancelled."))
		return nil
	}

	ex, err := c.api.Delete(ctx, id)
	if c.reportExchange(ex, err) {
		return nil
	}
	if ex.OK() {
		c.println("\n" + c.style(styleGreen, "Success:") + " student deleted.")
	} else {
		c.println("\n" + c.style(styleRed, "Could not delete the student."))
	}
	return nil
}

// reportExchange prints the exchange panel. It returns true when the request
// never got a response, after reporting the connection error.
func (c *Console) reportExchange(ex *client.Exchange, err error) bool {
	if ex != nil && ex.Status == 0 && err != nil {
		c.panel(ex)
		c.println(c.style(styleRed, "Error connecting to the server: ") + err.Error())
		return true
	}
	c.panel(ex)
	return false
}

//
// Input
//

// prompt prints label and reads one line without its line ending. It returns
// errQuit when input is exhausted.
func (c *Console) prompt(label string) (string, error) {
	fmt.Fprint(c.out, label)
	line, err := c.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		if errors.Is(err, io.EOF) {
			return "", errQuit
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// promptInt re-prompts until the line is an integer. With def set, an empty
// line yields *def.
func (c *Console) promptInt(label string, def *int) (int, error) {
	for {
		v, err := c.prompt(label)
		if err != nil {
			return 0, err
		}
		v = strings.TrimSpace(v)
		if v == "" && def != nil {
			return *def, nil
		}
		if n, err := strconv.Atoi(v); err == nil {
			return n, nil
		}
		c.println(c.style(styleRed, "Please enter a valid integer."))
	}
}

func (c *Console) choose() (int, error) {
	for {
		v, err := c.prompt(c.style(styleBold, "Choose an option") + " [1/2/3/4/5/6]: ")
		if err != nil {
			return 0, err
		}
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n >= 1 && n <= 6 {
			return n, nil
		}
		c.println(c.style(styleRed, "Please select one of the available options."))
	}
}

//
// Output
//

func (c *Console) println(s string) { fmt.Fprintln(c.out, s) }

func (c *Console) style(code, s string) string {
	if !c.opts.Color {
		return s
	}
	return "\x1b[" + code + "m" + s + "\x1b[0m"
}

func (c *Console) clear() {
	if c.opts.Clear {
		fmt.Fprint(c.out, "\x1b[H\x1b[2J")
	}
}

func (c *Console) banner() {
	c.println(c.style(styleCyan, "╭──────────────────────────╮"))
	c.println(c.style(styleCyan, "│      Student Manager     │"))
	c.println(c.style(styleCyan, "╰──────────────────────────╯"))
}

func (c *Console) menu() {
	c.println(c.style(styleBold, "Main menu"))
	c.println("1. List all students")
	c.println("2. Find a student by control number")
	c.println("3. Add a new student")
	c.println("4. Update a student")
	c.println("5. Delete a student")
	c.println("6. Exit")
}

func (c *Console) heading(title string) {
	c.println("\n" + c.style(styleGreen, "--- "+title+" ---"))
}

// table renders students in aligned columns.
func (c *Console) table(items []domain.Student) {
	if len(items) == 0 {
		c.println(c.style(styleYellow, "No students found."))
		return
	}
	tw := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Control No.\tFirst name\tPaternal surname\tMaternal surname\tSemester")
	for _, s := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", s.ControlID, s.FirstName, s.PaternalSurname, s.MaternalSurname, s.Semester)
	}
	_ = tw.Flush()
}

// panel shows method, URL, payload, status and the response body, which is
// pretty-printed when it is JSON.
func (c *Console) panel(ex *client.Exchange) {
	if ex == nil {
		return
	}
	c.println(c.style(styleYellow, "── API exchange ──────────────────────"))
	c.println(c.style(styleBold, "Method: ") + ex.Method)
	c.println(c.style(styleBold, "URL:    ") + ex.URL)
	if ex.Payload != nil {
		c.println(c.style(styleBold, "Payload sent:"))
		c.println(c.style(styleGreen, prettyValue(ex.Payload)))
	}
	if ex.Status != 0 {
		c.println(c.style(styleBold, "Status: ") + c.style(styleYellow, fmt.Sprintf("%d %s", ex.Status, ex.StatusText)))
		if body := prettyBody(ex.Body); body != "" {
			c.println(c.style(styleBold, "Response:"))
			c.println(body)
		}
	}
	c.println(c.style(styleYellow, "──────────────────────────────────────"))
}

func prettyValue(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Sprint(v)
	}
	return strings.TrimRight(buf.String(), "\n")
}

func prettyBody(b []byte) string {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return ""
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, b, "", "  "); err != nil {
		return string(b)
	}
	return buf.String()
}
