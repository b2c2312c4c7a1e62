package main

import (
	"errors"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
)

// errAborted is returned when the user interrupts a prompt.
var errAborted = errors.New("aborted")

// prompter asks the user for input. The editor command runs against any
// implementation so it can be driven without a terminal.
type prompter interface {
	Input(message, def string) (string, error)
	Multiline(message string) (string, error)
	Select(message string, options []string, def string) (string, error)
	Edit(message, text string) (string, error)
}

type surveyPrompter struct{}

func (surveyPrompter) Input(message, def string) (string, error) {
	var out string
	prompt := &survey.Input{Message: message, Default: def}
	if err := survey.AskOne(prompt, &out); err != nil {
		return "", translateSurveyErr(err)
	}
	return out, nil
}

func (surveyPrompter) Multiline(message string) (string, error) {
	var out string
	prompt := &survey.Multiline{Message: message}
	if err := survey.AskOne(prompt, &out, survey.WithValidator(survey.Required)); err != nil {
		return "", translateSurveyErr(err)
	}
	return out, nil
}

func (surveyPrompter) Select(message string, options []string, def string) (string, error) {
	var out string
	prompt := &survey.Select{Message: message, Options: options, PageSize: 12}
	for _, o := range options {
		if o == def {
			prompt.Default = def
			break
		}
	}
	if err := survey.AskOne(prompt, &out); err != nil {
		return "", translateSurveyErr(err)
	}
	return out, nil
}

func (surveyPrompter) Edit(message, text string) (string, error) {
	var out string
	prompt := &survey.Editor{
		Message:       message,
		Default:       text,
		AppendDefault: true,
		HideDefault:   true,
		FileName:      "script*.md",
	}
	if err := survey.AskOne(prompt, &out); err != nil {
		return "", translateSurveyErr(err)
	}
	return out, nil
}

func translateSurveyErr(err error) error {
	if errors.Is(err, terminal.InterruptErr) {
		return errAborted
	}
	return err
}
