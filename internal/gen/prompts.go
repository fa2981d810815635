package gen

import "strings"

// fill substitutes {name} placeholders in a prompt template. Templates carry
// Verilog format directives like %h and 100% literally, so Printf-style
// expansion is not usable here.
func fill(template string, pairs ...string) string {
	return strings.NewReplacer(pairs...).Replace(template)
}

const svExpertSystem = `
You are an expert in SystemVerilog design.
You can always write SystemVerilog code with no syntax errors and always reach correct functionality.
`

const rtlExpertSystem = `
You are an expert in RTL design. You can always write SystemVerilog code with no syntax errors and always reach correct functionality.
`

const pyExpertSystem = `You are an expert in RTL design and Python programming. You can always write correct Python code to verify RTL functionality.`

const orderPrompt = `
Your response will be processed by a program, not human.
So, please provide the json response only, strictly following the format below:
<output_format>
{output_format}
</output_format>
Do not include any other information in your response, like 'json', 'example' or '<output_format>'.
`

const failedTrialPrompt = `
A previous attempt at this task failed in simulation. Learn from it and avoid the same mistakes.
<failed_sim_log>
{failed_sim_log}
</failed_sim_log>
<previous_code>
{previous_code}
</previous_code>
<previous_tb>
{previous_tb}
</previous_tb>
`

const tbPrompt = `
In order to test a module generated with the given natural language specification:
1. Please write an IO interface for that module;
2. Please write a testbench to test the module.

The module interface should EXACTLY MATCH the description in input_spec.
(Including the module name, input/output ports names, and their types)

<input_spec>
{input_spec}
</input_spec>

The testbench should:
1. Instantiate the module according to the IO interface;
2. Generate input stimulate signals and expected output signals according to input_spec;
3. Apply the input signals to the module, count the number of mismatches between the output signals with the expected output signals;
4. Every time when a check occurs, no matter match or mismatch, display input signals, output signals and expected output signals;
5. When simulation ends, ADD DISPLAY "SIMULATION PASSED" if no mismatch occurs, otherwise display:
    "SIMULATION FAILED - x MISMATCHES DETECTED, FIRST AT TIME y".
6. To avoid ambiguity, please use the reverse edge to do output check. (If RTL runs at posedge, use negedge to check the output)
7. For pure combinational module (especially those without clk),
    the expected output should be checked at the exact moment when the input is changed;
8. Avoid using keyword "continue"

Try to understand the requirements above and give reasoning steps in natural language to achieve it.
In addition, try to give advice to avoid syntax error.
An SystemVerilog module always starts with a line starting with the keyword 'module' followed by the module name.
It ends with the keyword 'endmodule'.

Please also follow the display prompt below:
{display_prompt}
`

const goldenTBPrompt = `
In order to test a module generated with the given natural language specification:
1. Please write an IO interface for that module;
2. Please improve the given golden testbench to test the module.

The module interface should EXACTLY MATCH the description in input_spec.
(Including the module name, input/output ports names, and their types)

<input_spec>
{input_spec}
</input_spec>

To improve the golden testbench, you should add more display to it, while keeping the original functionality.
In detail, the testbench you generated should:
1. MAINTAIN the EXACT SAME functionality, interface and module instantiation as the golden testbench;
2. If the golden testbench contradicts the input_spec, ALWAYS FOLLOW the golden testbench;
3. MAINTAIN the original logic of error counting;
4. When simulation ends, ADD DISPLAY "SIMULATION PASSED" if no mismatch occurs, otherwise display:
    "SIMULATION FAILED - x MISMATCHES DETECTED, FIRST AT TIME y".
Please also follow the display prompt below:
{display_prompt}

Below is the golden testbench code for the module generated with the given natural language specification.
<golden_testbench>
{golden_testbench}
</golden_testbench>
`

const displayMomentPrompt = `
1. When the first mismatch occurs, display the input signals, output signals and expected output signals at that time.
2. For multiple-bit signals displayed in HEX format, also display the BINARY format if its width <= 64.
`

const displayQueuePrompt = `
1. If module to test is sequential logic (like including an FSM):
    1.1. Store input signals, output signals, expected output signals and reset signals in a queue with MAX_QUEUE_SIZE;
        When the first mismatch occurs, display the queue content after storing it. Make sure the mismatched signal can be displayed.
    1.2. MAX_QUEUE_SIZE should be set according to the requirement of the module.
        However, to control log size, NEVER set MAX_QUEUE_SIZE > 10.
    1.3. The clocking of queue and display should be same with the clocking of tb_match detection.
2. If module to test is combinational logic:
    When the first mismatch occurs, display the input signals, output signals and expected output signals at that time.
3. For multiple-bit signals displayed in HEX format, also display the BINARY format if its width <= 64.
`

const extraOrderTB = `
For pattern detecter, if no specification is found in input_spec,
suppose the "detected" output will be asserted on the cycle AFTER the pattern appears in input.
`

const extraOrderGoldenTB = `
Remember that if the golden testbench contradicts the input_spec, ALWAYS FOLLOW the golden testbench;
Especially if the input_spec say some input should not exist, but as long as the golden testbench uses it, you should use it.
Remember to display "SIMULATION PASSED" when simulation ends if no mismatch occurs, otherwise display "SIMULATION FAILED - x MISMATCHES DETECTED, FIRST AT TIME y".
Remember to add display for the FIRST mismatch, while maintaining the original logic of error counting;
ALWAYS generate the complete testbench, no matter how long it is.
Generate interface according to golden testbench, even if it contradicts the input_spec. Declare all ports as logic.
`

const rtlPrompt = `
Please write a SystemVerilog RTL module implementing the given natural language specification.

<input_spec>
{input_spec}
</input_spec>

The module interface must EXACTLY MATCH the IO interface below.
(Including the module name, input/output ports names, and their types)
<interface>
{interface}
</interface>

Try to understand the requirements above and give reasoning steps in natural language to achieve it.
In addition, try to give advice to avoid syntax error.
An SystemVerilog module always starts with a line starting with the keyword 'module' followed by the module name.
It ends with the keyword 'endmodule'.
`

const scenarioSystem = `
You are an expert in RTL design. You can always write SystemVerilog code with no syntax errors and always reach correct functionality. You can always generate correct testbenches for your RTL designs. Based on this analysis, you must generate detailed testbench scenarios in structured JSON format. Clearly state your reasoning for each scenario.
`

const scenarioPrompt = `
Your task is to write verilog testbench scenarios description for an verilog RTL module code (we call it as "DUT", device under test) according to the problem description.

Analyze its behavior thoroughly and create representative testbench scenarios. Clearly state your reasoning for each scenario. Structure the scenarios as JSON descriptions, ensuring each scenario covers critical aspects, including:
a. Typical operations
b. Edge cases and corner cases
c. Boundary conditions
d. Error handling
e. Valid and invalid inputs
f. Timing verification requirements

Here is the information you have:
1. <description>
{description}
</description>

2. <module_header>
{module_header}
</module_header>

3. <circuit_type>
{circuit_type}
</circuit_type>

Here is an example of SystemVerilog testbench scenarios descriptions:
<example>
    <input_spec>
        Implement an 8-bit synchronous up-counter with:
        - Clock (clk) rising-edge triggered
        - Active-high asynchronous reset (RST)
        - Active-high enable (EN)
        - Output value wraps from 255 to 0 on overflow
    </input_spec>
    <testbench_scenarios>
    {
        "scenario": "Basic Counting",
        "description": "Enable counting by asserting EN high for several clock cycles and verify counter increments each cycle."
    },
    {
        "scenario": "Asynchronous Reset",
        "description": "Assert RST asynchronously between clock edges and verify immediate counter reset to zero."
    },
    {
        "scenario": "Counter Rollover",
        "description": "Set counter value to 255, enable counting, and verify it rolls over to 0 on next increment."
    }
    </testbench_scenarios>
</example>
`

const ambiguityPrompt = `
Analyze the provided SystemVerilog specification for functional ambiguities that could lead to diverging implementations.
Focus on identifying cases where the spec allows at least two logically valid but functionally distinct RTL interpretations
(e.g., differing timing behaviors, state transitions, or output conditions).

Execute the following steps strictly:

1. Ambiguity Detection
   Highlight exact specification clauses (quote text) with multiple interpretations.
   If there are multiple ambiguities, list them separately.

   Classify ambiguity type:
    Timing Unspecified (e.g., missing clock-edge relationships)
    State Machine Overlap (e.g., undefined priority between concurrent transitions)
    Boundary Condition Gaps (e.g., undefined reset values or unhandled edge cases)
    Interface Protocol Violation (e.g., ambiguous handshake signal timing)
   There may be other types of ambiguities not listed here.
   Note: Ambiguous specifications may not always lead to diverging or wrong implementations.
   You should only pick out ambiguities that lead to diverging RTL implementations and substantive impact.

2. Implementation Contrast
   For each ambiguity, generate two minimal code snippets showing conflicting implementations.
   Annotate how each version would produce different simulation waveforms.

3. Resolution Proposal
   Suggest SPEC modification using IEEE SystemVerilog standard terminology.
   Provide assertion examples (SVA) to enforce intended behavior.

Here is an example of RTL ambiguity detection:
<example>
    "input_spec": "
// Module: data_processor
// Specification:
// 1. The module shall process incoming data when enable=1
// 2. data_valid must be asserted when processing completes
// 3. Processing takes 1-3 cycles depending on data value
    ",
    "reasoning": "
[Ambiguity 1]
    Source Clause: \"Processing takes 1-3 cycles depending on data value\"
    Type: Timing Unspecified
    Conflict Implementations: a fixed 3-cycle pipeline versus a variable-latency
    decoder keyed on data bits produce different data_valid timing.
    Clarification: state which data bits select each latency.
    ",
    "classification": "ambiguous"
</example>

<input_spec>
{input_spec}
</input_spec>
`

const extraOrderAmbiguity = `
VERY IMPORTANT: Please only include "reasoning" and "classification" in your response.
Do not include any other information in your response, like 'json', 'example', 'Let me analyze','input_spec' or '<output_format>'.
Key instruction: Direct output, no extra comments.
As a reminder, please directly provide the content without adding any extra comments or explanations.
`

const circuitTypePrompt = `
I will provide you with SystemVerilog specification. Your job is to determine whether this code implements combinational logic (CMB) or sequential logic (SEQ). Then, please explain your reasoning in detail, pointing out the specific signals or language constructs that lead you to your conclusion.

Instructions:

Carefully read and analyze the provided code.
Determine whether it describes a purely combinational module (CMB) or a sequential module (SEQ).

Here are some examples:
Example 1:
<example> "input_spec": " // Module: simple_counter // 1. On every rising edge of clk, if rst_n is low, count resets to 0. // 2. Otherwise, count increments by 1. ", "reasoning": " The design explicitly uses a clock (clk) and a reset signal (rst_n) to control state transitions. ", "classification": "SEQ" </example>

Example 2:
<example> "input_spec": " // Module: adder // 1. The module computes the sum of inputs a and b combinationally. // 2. There is no clock or state element involved. ", "reasoning": " The absence of any clock or state-related signals indicates that the module is purely combinational. ", "classification": "CMB" </example>

<input_spec>
{input_spec}
</input_spec>
`

const fixerPrompt = `
Analyze the provided SystemVerilog specification which is ambiguous.
Based on the reasons for these ambiguities provided below, modify the specification to eliminate any unclear aspects.
Ensure that the revised specification is precise and unambiguous.
<input_spec>
{input_spec}
</input_spec>

Reasons for ambiguity:
<reasons>
{reasons}
</reasons>

Your response will be processed by a program, not human.
So, please provide the modified specification only.
DO NOT include any other information in your response, like 'json', 'reasoning' or '<output_format>'.
`

const fixerGoldenRefPrompt = `
A golden reference implementation of the specification is available. The revised
specification must stay consistent with it.
<golden_ref>
{golden_ref}
</golden_ref>
`

const goldenModelPrompt = `Your current task is: write a python class "GoldenDUT". This python class can represent the golden DUT (the ideal one). In your "GoldenDUT", you should do the following things:

- a. Write a method "def __init__(self)". Set the inner states/values of the golden DUT. The "__init__" method has no input parameters except "self".
- b. Write a method "def load(self, signal_vector)". This method is to load the important input signals and get the expected output signals. it should return the expected output values. It can call other methods to help computing the expected output. It will be called by other inner methods later.
- c. write other methods you need, they can be called by "__init__", "load".
- d. the input and output of "load" are both the signal vector. The signal vector is a dictionary, the key is the signal name, the value is the signal value.

You can use binary (like 0b1101), hexadecimal (like 0x1a) or normal number format in python. But the signal vector input to GoldenDUT is always in decimal format.

<problem_description>
{problem_description}
</problem_description>

<checker_spec>
{checker_spec}
</checker_spec>

Please only generate the Python code for the GoldenDUT class, no other words.
`

// CheckerTail is appended to every generated golden model. It parses the
// signal dump a testbench writes to TBout.txt and replays it through the
// GoldenDUT class.
const CheckerTail = `

def SignalTxt_to_dictlist(txt:str):
    lines = txt.strip().split("\n")
    signals = []
    for line in lines:
        signal = {}
        line = line.strip().split(", ")
        for item in line:
            if "scenario" in item:
                item = item.split(": ")
                signal["scenario"] = item[1]
            else:
                item = item.split(" = ")
                key = item[0]
                value = item[1]
                if "x" not in value and "z" not in value:
                    signal[key] = int(value)
                else:
                    signal[key] = value
        signals.append(signal)
    return signals

with open("TBout.txt", "r") as f:
    txt = f.read()
vectors_in = SignalTxt_to_dictlist(txt)
golden_dut = GoldenDUT()
tb_outputs = golden_dut.load(vectors_in)
print(tb_outputs)
`

const mismatchEditorSystem = `
You are an expert in RTL design and code debugging.
Your job is to use actions to edit the provided SystemVerilog RTL code until it passes the supplied testbench.
Based on the testbench and the failed simulation log, you must identify and fix the parts of the RTL code that cause output mismatches.
The actions below are available:
<actions>
{actions}
</actions>
`

const coverageEditorSystem = `
You are an expert in RTL design and code optimization.
Your job is to use actions to edit and optimize the provided SystemVerilog code.
Based on the supplied coverage report, you must improve the testbench stimulus so that both line and branch coverage reach 100%.
Ensure that the modified code retains the intended functionality: the simulation must keep passing.
The actions below are available:
<actions>
{actions}
</actions>
`

const replaceActionDoc = `
<action>
<command>replace_content_by_matching</command>
<signature>(old_content: str, new_content: str)</signature>
<description>
Replace the content of the matching lines in the file with the new content.
Please ONLY replace the content that NEEDS to be modified. Don't change the content that is correct.
Please make sure old_content only occurs once in the file.
Example:
    Before:
    <example_rtl>
        1 module test;
        2   reg a;
        3   reg b;
        4 endmodule
    </example_rtl>
    Action:
    <action_input>
        "command": "replace_content_by_matching",
        "args": {
            "old_content": "  reg a;\n  reg b;",
            "new_content": "  logic a;"
        }
    </action_input>
    Now:
    <example_rtl>
        1 module test;
        2   logic a;
        4 endmodule
    </example_rtl>
</description>
</action>
`

const mismatchEditInit = `
The following information is provided to assist your work:
1. The natural language specification of the module under test.
2. A Verilog testbench.
3. The failed simulation log.
<input_spec>
{input_spec}
</input_spec>
<testbench>
{testbench}
</testbench>
<sim_failed_log>
{sim_failed_log}
</sim_failed_log>
`

const coverageEditInit = `
The following information is provided to assist your work:
1. The natural language specification of the module under test.
2. The RTL code of the module, which already passes its functional check.
3. A coverage report indicating that line or branch coverage is below 100%.
<input_spec>
{input_spec}
</input_spec>
<rtl_code>
{rtl_code}
</rtl_code>
<coverage_report>
{coverage_report}
</coverage_report>
`

const editOrderPrompt = `
Here is the current content of the file to edit:
<current_code>
{current_code}
</current_code>

Provide detailed reasoning in natural language about the change you plan to make, then exactly one action.
`
