package handler

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

type PlayRequestOptions struct {
	Query  string
	Volume int
}

func CommandToPlayRequest(
	options []*discordgo.ApplicationCommandInteractionDataOption,
) (*PlayRequestOptions, error) {
	var req PlayRequestOptions

	for _, option := range options {
		switch option.Name {
		case "query":
			if option.Type != discordgo.ApplicationCommandOptionString {
				return nil, fmt.Errorf("invalid type for query option")
			}
			req.Query = option.StringValue()
		case "volume":
			if option.Type != discordgo.ApplicationCommandOptionInteger {
				return nil, fmt.Errorf("invalid type for volume option")
			}
			req.Volume = int(option.IntValue())
		}
	}

	if req.Query == "" {
		return nil, fmt.Errorf("query option is required")
	}

	return &req, nil
}

type MoveRequest struct {
	From int
	To   int
}

func CommandToMoveRequest(
	options []*discordgo.ApplicationCommandInteractionDataOption,
) (*MoveRequest, error) {
	from, err := requiredIntOption(options, "from")
	if err != nil {
		return nil, err
	}
	to, err := requiredIntOption(options, "to")
	if err != nil {
		return nil, err
	}
	return &MoveRequest{From: from, To: to}, nil
}

func intOption(
	options []*discordgo.ApplicationCommandInteractionDataOption,
	name string,
	fallback int,
) (int, error) {
	for _, option := range options {
		if option.Name != name {
			continue
		}
		if option.Type != discordgo.ApplicationCommandOptionInteger {
			return 0, fmt.Errorf("invalid type for %s option", name)
		}
		return int(option.IntValue()), nil
	}
	return fallback, nil
}

func requiredIntOption(
	options []*discordgo.ApplicationCommandInteractionDataOption,
	name string,
) (int, error) {
	value, err := intOption(options, name, 0)
	if err != nil {
		return 0, err
	}
	if value == 0 {
		return 0, fmt.Errorf("%s option is required", name)
	}
	return value, nil
}
