package commands

import (
	"github.com/AlecAivazis/survey/v2"
)

// Prompter asks the user to pick from a list
type Prompter interface {
	MultiSelect(message string, options []string) ([]string, error)
}

type surveyPrompter struct{}

func (surveyPrompter) MultiSelect(message string, options []string) ([]string, error) {
	var picked []string
	prompt := &survey.MultiSelect{
		Message:  message,
		Options:  options,
		PageSize: 15,
	}
	if err := survey.AskOne(prompt, &picked, survey.WithValidator(survey.Required)); err != nil {
		return nil, err
	}
	return picked, nil
}
