package mfetch

import (
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/spf13/cobra"
)

// Prompter asks the user for input. Both methods return terminal.InterruptErr on Ctrl-C.
type Prompter interface {
	Input(message string) (string, error)
	Select(message string, options []string) (int, error)
}

type surveyPrompter struct {
	stdio survey.AskOpt
}

func newSurveyPrompter(cmd *cobra.Command) Prompter {
	in, ok := cmd.InOrStdin().(terminal.FileReader)
	if !ok {
		in = os.Stdin
	}
	out, ok := cmd.OutOrStdout().(terminal.FileWriter)
	if !ok {
		out = os.Stdout
	}
	return surveyPrompter{stdio: survey.WithStdio(in, out, cmd.ErrOrStderr())}
}

func (prompter surveyPrompter) Input(message string) (string, error) {
	var answer string
	err := survey.AskOne(&survey.Input{Message: message}, &answer, prompter.stdio)
	return answer, err
}

func (prompter surveyPrompter) Select(message string, options []string) (int, error) {
	var index int
	err := survey.AskOne(&survey.Select{Message: message, Options: options, PageSize: 10}, &index, prompter.stdio)
	return index, err
}
