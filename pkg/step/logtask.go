package step

import "github.com/fmeurisse/maestro-sub001/pkg/spec"

// TagLogTask is the registry tag for the LogTask reference task kind.
const TagLogTask = "LogTask"

// LogTask is a leaf step that writes Message to the execution's logger
// and always completes. It is the minimal reference task kind used to
// exercise the engine's checkpoint protocol end to end.
type LogTask struct {
	StepMeta spec.StepMeta
	Message  string
}

func (t *LogTask) Tag() string          { return TagLogTask }
func (t *LogTask) Meta() *spec.StepMeta { return &t.StepMeta }

func logTaskKind() KindInfo {
	return KindInfo{
		Tag:         TagLogTask,
		DisplayName: "Log a message",
		Decode:      decodeLogTask,
		Encode:      encodeLogTask,
		Execute:     executeLogTask,
	}
}

func decodeLogTask(_ *Registry, fields map[string]interface{}) (spec.Step, error) {
	message, err := stringField(fields, "message", true)
	if err != nil {
		return nil, err
	}
	return &LogTask{StepMeta: metaFromFields(fields), Message: message}, nil
}

func encodeLogTask(_ *Registry, s spec.Step) (map[string]interface{}, error) {
	t := s.(*LogTask)
	fields := metaToFields(t.StepMeta)
	fields["message"] = t.Message
	return fields, nil
}

func executeLogTask(ctx Context, s spec.Step) (spec.StepStatus, map[string]interface{}, error) {
	t := s.(*LogTask)
	ctx.Logger().Infof("%s", t.Message)
	return spec.StepCompleted, map[string]interface{}{"message": t.Message}, nil
}
