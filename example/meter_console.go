package main

import (
	"bufio"
	"chordtuner"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
)

// Drives a serial meter by hand, to check the display without playing.
//
//	> Am 80
//	> tune guitar E2:-12 A2:0
func main() {
	portName := "/dev/tty.usbserial"
	if len(os.Args) > 1 {
		portName = os.Args[1]
	}
	baudRate := 115200

	fmt.Printf("Connecting to meter on %s...\n", portName)

	client := chordtuner.NewMeterClient(portName, baudRate)
	if err := client.Open(); err != nil {
		log.Fatalf("Failed to open serial port: %v\n", err)
	}
	defer client.Close()
	fmt.Println("Connected. Type '<chord> <confidence>' or 'tune <note>:<cents> ...'.")
	fmt.Println("Type 'exit' or 'quit' to stop.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
			break
		}

		fields := strings.Fields(input)
		var err error
		if strings.EqualFold(fields[0], "tune") {
			err = client.SendReadings(parseReadings(fields[1:]))
		} else {
			r := chordtuner.ChordDetectionResult{Label: fields[0], Confidence: 100}
			if len(fields) > 1 {
				if c, cerr := strconv.Atoi(fields[1]); cerr == nil {
					r.Confidence = c
				}
			}
			err = client.SendChord(r)
		}
		if err != nil {
			log.Printf("Error sending: %v\n", err)
		}
	}

	fmt.Println("Bye.")
}

func parseReadings(fields []string) []chordtuner.PitchReading {
	var readings []chordtuner.PitchReading
	for _, f := range fields {
		note, centsText, ok := strings.Cut(f, ":")
		if !ok {
			continue
		}
		cents, err := strconv.ParseFloat(centsText, 64)
		if err != nil {
			continue
		}
		readings = append(readings, chordtuner.PitchReading{
			Note:   note,
			Cents:  cents,
			InTune: cents > -5 && cents < 5,
		})
	}
	return readings
}
