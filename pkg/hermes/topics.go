package hermes

import "strings"

// Fixed topics.
const (
	TopicStartListening = "hermes/asr/startListening"
	TopicStopListening  = "hermes/asr/stopListening"
	TopicToggleOn       = "hermes/asr/toggleOn"
	TopicToggleOff      = "hermes/asr/toggleOff"
	TopicTextCaptured   = "hermes/asr/textCaptured"
	TopicAsrError       = "hermes/error/asr"
	TopicG2pPronounce   = "rhasspy/g2p/pronounce"
	TopicG2pPhonemes    = "rhasspy/g2p/phonemes"
	TopicG2pError       = "rhasspy/error/g2p"
)

// Subscription filters for the inbound topics that embed site or session ids.
const (
	FilterAudioFrame        = "hermes/audioServer/+/audioFrame"
	FilterAudioSessionFrame = "hermes/audioServer/+/+/audioSessionFrame"
	FilterTrain             = "rhasspy/asr/+/train"
)

// InboundFilters lists every topic filter the ASR bridge subscribes to.
func InboundFilters() []string {
	return []string{
		TopicStartListening,
		TopicStopListening,
		TopicToggleOn,
		TopicToggleOff,
		FilterAudioFrame,
		FilterAudioSessionFrame,
		FilterTrain,
		TopicG2pPronounce,
	}
}

// AudioFrameTopic returns the audio frame topic for siteID.
func AudioFrameTopic(siteID string) string {
	return "hermes/audioServer/" + siteID + "/audioFrame"
}

// AudioSessionFrameTopic returns the session-scoped audio frame topic.
func AudioSessionFrameTopic(siteID, sessionID string) string {
	return "hermes/audioServer/" + siteID + "/" + sessionID + "/audioSessionFrame"
}

// AudioCapturedTopic returns the topic carrying a session's recorded WAV.
func AudioCapturedTopic(siteID, sessionID string) string {
	return "rhasspy/asr/" + siteID + "/" + sessionID + "/audioCaptured"
}

// TrainTopic returns the training request topic for siteID.
func TrainTopic(siteID string) string {
	return "rhasspy/asr/" + siteID + "/train"
}

// TrainSuccessTopic returns the training acknowledgement topic for siteID.
func TrainSuccessTopic(siteID string) string {
	return "rhasspy/asr/" + siteID + "/trainSuccess"
}

// parseAudioTopic extracts the site (and optionally the session) from an
// audio server topic. ok is false if topic is not an audio frame topic.
func parseAudioTopic(topic string) (siteID, sessionID string, session, ok bool) {
	rest, found := strings.CutPrefix(topic, "hermes/audioServer/")
	if !found {
		return "", "", false, false
	}
	parts := strings.Split(rest, "/")
	switch {
	case len(parts) == 2 && parts[1] == "audioFrame" && parts[0] != "":
		return parts[0], "", false, true
	case len(parts) == 3 && parts[2] == "audioSessionFrame" && parts[0] != "" && parts[1] != "":
		return parts[0], parts[1], true, true
	}
	return "", "", false, false
}

// parseTrainTopic extracts the site from a training request topic.
func parseTrainTopic(topic string) (siteID string, ok bool) {
	rest, found := strings.CutPrefix(topic, "rhasspy/asr/")
	if !found {
		return "", false
	}
	siteID, found = strings.CutSuffix(rest, "/train")
	if !found || siteID == "" || strings.Contains(siteID, "/") {
		return "", false
	}
	return siteID, true
}
