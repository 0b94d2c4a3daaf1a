package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/go-playground/validator/v10"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spigell/interview-agent/internal/model"
	"go.uber.org/zap"
)

const (
	CommandQuit   = "/quit"
	CommandReport = "/report"
)

var (
	interviewerColor = color.New(color.FgCyan, color.Bold)
	phaseColor       = color.New(color.FgYellow)
	reportColor      = color.New(color.FgGreen)
)

var (
	errExit  = errors.New("exit requested")
	validate = validator.New()
)

var interviewCmd = &cobra.Command{
	Use:   "interview",
	Short: "Run an interactive interview in the terminal",
	Run: func(cmd *cobra.Command, _ []string) {
		runInterview(cmd)
	},
}

func init() {
	rootCmd.AddCommand(interviewCmd)
}

func runInterview(cmd *cobra.Command) {
	ctx := cmd.Context()

	config, logger := bootstrap()
	defer logger.Sync()

	app, err := newApplication(ctx, config, logger)
	if err != nil {
		logger.Fatal("building the application", zap.Error(err))
	}
	defer app.Close()

	candidate, err := askCandidate()
	if err != nil {
		if isExit(err) {
			return
		}
		logger.Fatal("reading the candidate profile", zap.Error(err))
	}

	started, err := app.engine.Start(ctx, candidate)
	if err != nil {
		logger.Fatal("starting the interview", zap.Error(err))
	}
	logger.Info("interview started", zap.String("interview_id", started.InterviewID))

	printTurn(started.Reply, started.Phase)

	if err := converse(ctx, app, started.InterviewID); err != nil {
		if isExit(err) {
			logger.Info("interview stopped", zap.String("interview_id", started.InterviewID))
			return
		}
		logger.Fatal("interview failed", zap.Error(err))
	}

	if err := printReport(ctx, app, started.InterviewID); err != nil {
		logger.Fatal("compiling the report", zap.Error(err))
	}
}

func converse(ctx context.Context, app *application, interviewID string) error {
	answerPrompt := promptui.Prompt{
		Label: fmt.Sprintf("You (%s to stop, %s for the report)", CommandQuit, CommandReport),
		Validate: func(input string) error {
			if strings.TrimSpace(input) == "" {
				return errors.New("answer must not be empty")
			}
			return nil
		},
	}

	for {
		answer, err := answerPrompt.Run()
		if err != nil {
			return err
		}

		switch strings.TrimSpace(answer) {
		case CommandQuit:
			return errExit
		case CommandReport:
			return nil
		}

		res, err := app.engine.Process(ctx, interviewID, answer)
		if err != nil {
			return err
		}
		printTurn(res.Reply, res.Phase)

		if res.Phase.IsTerminal() {
			return nil
		}
	}
}

func askCandidate() (model.Candidate, error) {
	var c model.Candidate
	var err error

	if c.Name, err = ask("Full name", "", required); err != nil {
		return c, err
	}
	if c.Email, err = ask("Email", "", validEmail); err != nil {
		return c, err
	}
	if c.Phone, err = ask("Phone", "", nil); err != nil {
		return c, err
	}
	if c.Position, err = ask("Desired position", "Software Engineer", nil); err != nil {
		return c, err
	}

	experience, err := ask("Years of experience", "0", nonNegativeNumber)
	if err != nil {
		return c, err
	}
	c.Experience, _ = strconv.ParseFloat(strings.TrimSpace(experience), 64)

	if c.Location, err = ask("Location", "", nil); err != nil {
		return c, err
	}

	stack, err := ask("Tech stack (comma separated)", "", nil)
	if err != nil {
		return c, err
	}
	c.TechStack = model.ParseTechStack(stack)

	return c, nil
}

func ask(label, def string, validate promptui.ValidateFunc) (string, error) {
	p := promptui.Prompt{
		Label:    label,
		Default:  def,
		Validate: validate,
	}
	return p.Run()
}

func required(input string) error {
	if strings.TrimSpace(input) == "" {
		return errors.New("value is required")
	}
	return nil
}

func validEmail(input string) error {
	if err := validate.Var(strings.TrimSpace(input), "required,email"); err != nil {
		return errors.New("invalid email address")
	}
	return nil
}

func nonNegativeNumber(input string) error {
	v, err := strconv.ParseFloat(strings.TrimSpace(input), 64)
	if err != nil || v < 0 {
		return errors.New("must be a non-negative number")
	}
	return nil
}

func printTurn(reply string, phase model.Phase) {
	fmt.Println()
	phaseColor.Printf("[%s] ", phase)
	interviewerColor.Println("Interviewer:")
	fmt.Println(reply)
	fmt.Println()
}

func printReport(ctx context.Context, app *application, interviewID string) error {
	r, err := app.engine.Report(ctx, interviewID)
	if err != nil {
		return err
	}

	reportColor.Printf("\nOverall score: %.1f/10  Recommendation: %s\n", r.OverallScore, r.Recommendation)
	fmt.Printf("\n%s\n", r.Summary)
	printList("Strengths", r.Strengths)
	printList("Areas to improve", r.Improvements)
	if r.DetailedFeedback != "" {
		fmt.Printf("\n%s\n", r.DetailedFeedback)
	}
	return nil
}

func printList(title string, items []string) {
	if len(items) == 0 {
		return
	}
	reportColor.Printf("\n%s:\n", title)
	for _, item := range items {
		fmt.Printf("  - %s\n", item)
	}
}

func isExit(err error) bool {
	return errors.Is(err, errExit) || errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF)
}
